package automation

import (
	"context"
	"fmt"
	"sort"
)

// Result aggregates one sequence run.
type Result struct {
	Executed int      `json:"executed"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

// Runner executes the actions of one sequence strictly one at a time, in
// ascending order. A failed action is recorded and the run continues: one
// bad command must not block the rest of the sequence.
type Runner struct {
	interp *Interpreter
}

func NewRunner(interp *Interpreter) *Runner {
	return &Runner{interp: interp}
}

func (r *Runner) Run(ctx context.Context, serverID string, seq *Sequence, player string) Result {
	actions := make([]Action, 0, len(seq.Actions))
	for _, a := range seq.Actions {
		// Unknown types survive storage round trips but never execute.
		if a.Enabled && a.Type.Known() {
			actions = append(actions, a)
		}
	}
	// Stable: actions sharing an order value keep their stored relative order.
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Order < actions[j].Order
	})

	var res Result
	for _, a := range actions {
		if err := r.interp.Execute(ctx, serverID, a, player); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("Action %s (%s): %s", a.ID, a.Type, err.Error()))
			continue
		}
		res.Executed++
	}
	return res
}
