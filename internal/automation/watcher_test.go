package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftdeck/craftdeck/internal/console"
)

func newTestWatcher(ws *fakeWatcherStore, transport *fakeTransport, store Store) *Watcher {
	dispatcher := NewDispatcher(store, NewRunner(NewInterpreter(transport)))
	return NewWatcher(ws, transport, dispatcher, time.Minute)
}

func joinLeaveDefinition(serverID string) *Definition {
	return &Definition{
		ServerID: serverID,
		Enabled:  true,
		OnPlayerJoin: &Sequence{
			ID: "join", Name: "greet", Enabled: true,
			Actions: []Action{commandAction("j1", 1, "msg {player} welcome")},
		},
		OnPlayerLeave: &Sequence{
			ID: "leave", Name: "farewell", Enabled: true,
			Actions: []Action{commandAction("l1", 1, "say {player} left")},
		},
	}
}

func TestWatcher_DetectsJoinAndGreets(t *testing.T) {
	ws := newFakeWatcherStore()
	ws.servers = []AutomatedServer{{ID: "srv1", Name: "Survival"}}
	transport := newFakeTransport()
	transport.states["srv1"] = console.State{Status: console.StatusRunning, Players: []string{"Alice"}}
	store := newFakeStore()
	store.defs["srv1"] = joinLeaveDefinition("srv1")
	w := newTestWatcher(ws, transport, store)

	reports := w.RunCycle(context.Background())

	require.Len(t, reports, 1)
	assert.Equal(t, "Survival", reports[0].ServerName)
	assert.Equal(t, []string{"Alice"}, reports[0].PlayersJoined)
	assert.Empty(t, reports[0].PlayersLeft)
	assert.Equal(t, 1, reports[0].AutomationsExecuted)
	assert.Equal(t, []string{"msg Alice welcome"}, transport.sent())

	snap := ws.snapshots["srv1"]
	assert.Equal(t, []string{"Alice"}, snap.Players)
	assert.Equal(t, []string{"Alice"}, snap.Greeted)
	assert.Equal(t, console.StatusRunning, snap.LastStatus)
}

func TestWatcher_SecondCycleIsQuiet(t *testing.T) {
	ws := newFakeWatcherStore()
	ws.servers = []AutomatedServer{{ID: "srv1", Name: "Survival"}}
	transport := newFakeTransport()
	transport.states["srv1"] = console.State{Status: console.StatusRunning, Players: []string{"Alice"}}
	store := newFakeStore()
	store.defs["srv1"] = joinLeaveDefinition("srv1")
	w := newTestWatcher(ws, transport, store)

	w.RunCycle(context.Background())
	reports := w.RunCycle(context.Background())

	assert.Empty(t, reports)
	// One greeting total: the second cycle must not greet Alice again.
	assert.Equal(t, []string{"msg Alice welcome"}, transport.sent())
	assert.Equal(t, 2, ws.saves)
}

func TestWatcher_DetectsLeave(t *testing.T) {
	ws := newFakeWatcherStore()
	ws.servers = []AutomatedServer{{ID: "srv1", Name: "Survival"}}
	ws.snapshots["srv1"] = Snapshot{
		Players:    []string{"Alice", "Bob"},
		Greeted:    []string{"Alice", "Bob"},
		LastStatus: console.StatusRunning,
	}
	transport := newFakeTransport()
	transport.states["srv1"] = console.State{Status: console.StatusRunning, Players: []string{"Alice"}}
	store := newFakeStore()
	store.defs["srv1"] = joinLeaveDefinition("srv1")
	w := newTestWatcher(ws, transport, store)

	reports := w.RunCycle(context.Background())

	require.Len(t, reports, 1)
	assert.Equal(t, []string{"Bob"}, reports[0].PlayersLeft)
	assert.Equal(t, []string{"say Bob left"}, transport.sent())
}

func TestWatcher_ServerStopCountsEveryoneAsLeft(t *testing.T) {
	ws := newFakeWatcherStore()
	ws.servers = []AutomatedServer{{ID: "srv1", Name: "Survival"}}
	ws.snapshots["srv1"] = Snapshot{
		Players:    []string{"Alice", "Bob"},
		Greeted:    []string{"Alice", "Bob"},
		LastStatus: console.StatusRunning,
	}
	transport := newFakeTransport()
	transport.states["srv1"] = console.State{Status: 0}
	store := newFakeStore()
	store.defs["srv1"] = joinLeaveDefinition("srv1")
	w := newTestWatcher(ws, transport, store)

	reports := w.RunCycle(context.Background())

	require.Len(t, reports, 1)
	assert.Equal(t, []string{"Alice", "Bob"}, reports[0].PlayersLeft)
	assert.Equal(t, []string{"say Alice left", "say Bob left"}, transport.sent())
	assert.Empty(t, ws.snapshots["srv1"].Players)
}

func TestWatcher_CachePersistsEvenWhenAutomationFails(t *testing.T) {
	ws := newFakeWatcherStore()
	ws.servers = []AutomatedServer{{ID: "srv1", Name: "Survival"}}
	transport := newFakeTransport()
	transport.states["srv1"] = console.State{Status: console.StatusRunning, Players: []string{"Alice"}}
	transport.failOn = func(string) error { return errors.New("console down") }
	store := newFakeStore()
	store.defs["srv1"] = joinLeaveDefinition("srv1")
	w := newTestWatcher(ws, transport, store)

	w.RunCycle(context.Background())

	// The greeting failed, but the cache still records the poll; the failure
	// is visible in the execution log, not replayed next cycle.
	assert.Equal(t, 1, ws.saves)
	assert.Equal(t, []string{"Alice"}, ws.snapshots["srv1"].Greeted)
}

func TestWatcher_PollErrorSkipsServer(t *testing.T) {
	ws := newFakeWatcherStore()
	ws.servers = []AutomatedServer{{ID: "srv1", Name: "Survival"}}
	transport := newFakeTransport()
	transport.stateErr = errors.New("docker unavailable")
	store := newFakeStore()
	w := newTestWatcher(ws, transport, store)

	reports := w.RunCycle(context.Background())

	assert.Empty(t, reports)
	assert.Zero(t, ws.saves)
}

func TestWatcher_MultipleServersPolledIndependently(t *testing.T) {
	ws := newFakeWatcherStore()
	ws.servers = []AutomatedServer{
		{ID: "srv1", Name: "Survival"},
		{ID: "srv2", Name: "Creative"},
	}
	transport := newFakeTransport()
	transport.states["srv1"] = console.State{Status: console.StatusRunning, Players: []string{"Alice"}}
	transport.states["srv2"] = console.State{Status: console.StatusRunning, Players: []string{"Bob"}}
	store := newFakeStore()
	store.defs["srv1"] = joinLeaveDefinition("srv1")
	store.defs["srv2"] = joinLeaveDefinition("srv2")
	w := newTestWatcher(ws, transport, store)

	reports := w.RunCycle(context.Background())

	require.Len(t, reports, 2)
	assert.Equal(t, "Survival", reports[0].ServerName)
	assert.Equal(t, "Creative", reports[1].ServerName)
	assert.Equal(t, []string{"msg Alice welcome", "msg Bob welcome"}, transport.sent())
}

func TestWatcher_StartStop(t *testing.T) {
	ws := newFakeWatcherStore()
	transport := newFakeTransport()
	w := newTestWatcher(ws, transport, newFakeStore())

	w.Start()
	w.Stop()
}
