package automation

import (
	"time"

	"github.com/craftdeck/craftdeck/internal/console"
)

// Snapshot is the per-server presence cache entry: the last known online
// set, who has already been greeted during the current online period, and
// the last observed server status. It is mutated exclusively through Diff.
type Snapshot struct {
	Players     []string  `json:"players"`
	Greeted     []string  `json:"greeted_players"`
	LastStatus  int       `json:"last_server_status"`
	LastChecked time.Time `json:"last_checked"`
}

// Transition is the outcome of diffing one poll against the cached snapshot.
type Transition struct {
	// Joined and Left are the players that appeared and disappeared since
	// the previous poll.
	Joined []string
	Left   []string

	// NeedingGreeting is every online player not yet greeted this online
	// period. It is deliberately wider than Joined: a join missed by a
	// skipped poll cycle is still greeted, while a player who stayed online
	// is never greeted twice.
	NeedingGreeting []string

	// Cache is the snapshot to persist. Once stored, re-diffing the same
	// inputs yields an empty transition.
	Cache Snapshot
}

// Diff computes joins and leaves from the previous snapshot and the current
// player list.
//
// State machine on (prev.LastStatus, status):
//   - offline -> online: the greeted set is cleared; a fresh session greets
//     everyone again.
//   - online -> online: plain set differences by exact name.
//   - online -> offline: every tracked player counts as left; the greeted
//     set is retained until the next online transition.
func Diff(prev Snapshot, status int, current []string, now time.Time) Transition {
	online := status == console.StatusRunning
	wasOnline := prev.LastStatus == console.StatusRunning

	greeted := prev.Greeted
	var trans Transition

	if online {
		if !wasOnline {
			greeted = nil
		}
		trans.Joined = subtract(current, prev.Players)
		trans.Left = subtract(prev.Players, current)
		trans.NeedingGreeting = subtract(current, greeted)

		// Greeted names that left are pruned so a re-join is treated as new.
		greeted = subtract(greeted, trans.Left)
		greeted = append(greeted, trans.NeedingGreeting...)
	} else if wasOnline {
		// Close the session: everyone still tracked has left.
		trans.Left = append([]string(nil), prev.Players...)
	}

	trans.Cache = Snapshot{
		Players:     append([]string(nil), current...),
		Greeted:     greeted,
		LastStatus:  status,
		LastChecked: now,
	}
	return trans
}

// subtract returns the members of a not present in b, preserving a's order.
func subtract(a, b []string) []string {
	if len(a) == 0 {
		return nil
	}
	exclude := make(map[string]struct{}, len(b))
	for _, name := range b {
		exclude[name] = struct{}{}
	}
	var out []string
	for _, name := range a {
		if _, ok := exclude[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}
