package automation

import (
	"context"
	"log"
	"time"

	"github.com/craftdeck/craftdeck/internal/console"
)

// WatcherStore is the slice of persistence the presence watcher needs.
type WatcherStore interface {
	// AutomatedServers lists servers whose automation is enabled with at
	// least one join/leave sequence configured.
	AutomatedServers(ctx context.Context) ([]AutomatedServer, error)

	// PresenceSnapshot loads the cached snapshot for a server; a server
	// never polled before yields the zero snapshot.
	PresenceSnapshot(ctx context.Context, serverID string) (Snapshot, error)

	// SavePresenceSnapshot persists the snapshot produced by Diff.
	SavePresenceSnapshot(ctx context.Context, serverID string, snap Snapshot) error
}

type AutomatedServer struct {
	ID   string
	Name string
}

// CycleReport summarizes one server's transitions during a poll cycle.
// Servers without observed transitions produce no report.
type CycleReport struct {
	ServerName          string   `json:"server_name"`
	PlayersJoined       []string `json:"players_joined"`
	PlayersLeft         []string `json:"players_left"`
	AutomationsExecuted int      `json:"automations_executed"`
}

// Watcher polls player presence for every server with join/leave automation
// and dispatches the detected transitions. Servers are processed strictly
// one at a time, and players within a server strictly one at a time, so
// console command ordering stays deterministic.
type Watcher struct {
	store      WatcherStore
	transport  console.Transport
	dispatcher *Dispatcher
	interval   time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatcher(store WatcherStore, transport console.Transport, dispatcher *Dispatcher, interval time.Duration) *Watcher {
	return &Watcher{
		store:      store,
		transport:  transport,
		dispatcher: dispatcher,
		interval:   interval,
	}
}

func (w *Watcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.RunCycle(ctx)
			}
		}
	}()

	log.Printf("Presence watcher started (%s interval)", w.interval)
}

func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
}

// RunCycle polls every automated server once and returns reports for the
// servers with observed transitions.
func (w *Watcher) RunCycle(ctx context.Context) []CycleReport {
	servers, err := w.store.AutomatedServers(ctx)
	if err != nil {
		log.Printf("watcher: list servers: %v", err)
		return nil
	}

	var reports []CycleReport
	for _, srv := range servers {
		report, ok := w.pollServer(ctx, srv)
		if ok {
			reports = append(reports, report)
		}
	}
	return reports
}

func (w *Watcher) pollServer(ctx context.Context, srv AutomatedServer) (CycleReport, bool) {
	state, err := w.transport.OnlinePlayers(ctx, srv.ID)
	if err != nil {
		log.Printf("watcher: poll %s: %v", srv.ID, err)
		return CycleReport{}, false
	}

	prev, err := w.store.PresenceSnapshot(ctx, srv.ID)
	if err != nil {
		log.Printf("watcher: load snapshot %s: %v", srv.ID, err)
		return CycleReport{}, false
	}

	trans := Diff(prev, state.Status, state.Players, time.Now().UTC())

	executed := 0
	for _, player := range trans.NeedingGreeting {
		res, err := w.dispatcher.Execute(ctx, srv.ID, TriggerPlayerJoin, "watcher", player)
		if err != nil {
			log.Printf("watcher: join automation for %s on %s: %v", player, srv.ID, err)
			continue
		}
		if res.Executed {
			executed++
		}
	}
	for _, player := range trans.Left {
		res, err := w.dispatcher.Execute(ctx, srv.ID, TriggerPlayerLeave, "watcher", player)
		if err != nil {
			log.Printf("watcher: leave automation for %s on %s: %v", player, srv.ID, err)
			continue
		}
		if res.Executed {
			executed++
		}
	}

	// Cache correctness must not depend on automation success.
	if err := w.store.SavePresenceSnapshot(ctx, srv.ID, trans.Cache); err != nil {
		log.Printf("watcher: save snapshot %s: %v", srv.ID, err)
	}

	if len(trans.Joined) == 0 && len(trans.Left) == 0 && len(trans.NeedingGreeting) == 0 {
		return CycleReport{}, false
	}
	return CycleReport{
		ServerName:          srv.Name,
		PlayersJoined:       trans.Joined,
		PlayersLeft:         trans.Left,
		AutomationsExecuted: executed,
	}, true
}
