package automation

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrPlayerRequired is returned when a join or leave trigger is dispatched
// without a player name. The HTTP layer maps it to a 400.
var ErrPlayerRequired = errors.New("player name required for this trigger")

// Store is the persistence collaborator the dispatcher needs: definition
// lookup by server and append-only log writes.
type Store interface {
	// Definition returns the automation definition for a server, or nil
	// when none is configured.
	Definition(ctx context.Context, serverID string) (*Definition, error)

	// SaveLog appends one execution log entry.
	SaveLog(ctx context.Context, entry *LogEntry) error
}

// DispatchResult reports one trigger dispatch. Executed is false when the
// server simply has nothing configured for the trigger, which is not an
// error.
type DispatchResult struct {
	Executed bool   `json:"executed"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// Dispatcher maps a lifecycle trigger to the stored sequence and runs it.
// It also owns the fire-and-forget queue used by the start/stop paths: the
// triggering request never waits on the automation, whose outcome is
// observable only through the execution log.
type Dispatcher struct {
	store  Store
	runner *Runner

	jobs   chan job
	cancel context.CancelFunc
	done   chan struct{}
}

type job struct {
	serverID  string
	trigger   Trigger
	invokedBy string
}

func NewDispatcher(store Store, runner *Runner) *Dispatcher {
	return &Dispatcher{
		store:  store,
		runner: runner,
		jobs:   make(chan job, 64),
	}
}

// Execute runs the automation for one trigger synchronously. The returned
// error is reserved for store failures; sequence-level failures come back as
// Success=false with a joined error summary.
func (d *Dispatcher) Execute(ctx context.Context, serverID string, trigger Trigger, invokedBy, player string) (DispatchResult, error) {
	if trigger.RequiresPlayer() && player == "" {
		return DispatchResult{}, ErrPlayerRequired
	}

	def, err := d.store.Definition(ctx, serverID)
	if err != nil {
		return DispatchResult{}, err
	}
	if def == nil || !def.Enabled {
		return DispatchResult{Executed: false, Success: true}, nil
	}

	seq := def.Sequence(trigger)
	if seq == nil || !seq.Enabled || len(seq.Actions) == 0 {
		return DispatchResult{Executed: false, Success: true}, nil
	}

	start := time.Now()
	res := d.runner.Run(ctx, serverID, seq, player)
	duration := time.Since(start)

	entry := &LogEntry{
		ID:              uuid.New().String(),
		ServerID:        serverID,
		SequenceID:      seq.ID,
		SequenceName:    seq.Name,
		Trigger:         trigger,
		ExecutedAt:      start,
		ExecutedBy:      invokedBy,
		Success:         len(res.Errors) == 0,
		ActionsExecuted: res.Executed,
		ActionsFailed:   res.Failed,
		Errors:          res.Errors,
		DurationMS:      duration.Milliseconds(),
	}
	// The log write is best-effort; a logging failure must not fail the run.
	if err := d.store.SaveLog(ctx, entry); err != nil {
		log.Printf("automation: save log for %s/%s: %v", serverID, trigger, err)
	}

	result := DispatchResult{Executed: true, Success: entry.Success}
	if !entry.Success {
		result.Error = strings.Join(res.Errors, "; ")
	}
	return result, nil
}

// Submit queues a fire-and-forget dispatch, used after start/stop lifecycle
// actions complete. A full queue drops the job rather than blocking the
// caller.
func (d *Dispatcher) Submit(serverID string, trigger Trigger, invokedBy string) {
	select {
	case d.jobs <- job{serverID: serverID, trigger: trigger, invokedBy: invokedBy}:
	default:
		log.Printf("automation: queue full, dropping %s trigger for %s", trigger, serverID)
	}
}

// StartWorker launches the single goroutine that drains the submission
// queue. Jobs run strictly one at a time to keep console output ordered.
func (d *Dispatcher) StartWorker() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})

	go func() {
		defer close(d.done)
		for {
			select {
			case <-ctx.Done():
				return
			case j := <-d.jobs:
				if _, err := d.Execute(ctx, j.serverID, j.trigger, j.invokedBy, ""); err != nil {
					log.Printf("automation: %s trigger for %s: %v", j.trigger, j.serverID, err)
				}
			}
		}
	}()

	log.Println("Automation dispatcher started")
}

func (d *Dispatcher) StopWorker() {
	if d.cancel != nil {
		d.cancel()
		<-d.done
	}
}
