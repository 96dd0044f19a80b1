package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/craftdeck/craftdeck/internal/console"
)

// fakeTransport records every console send and can be told to fail on
// specific commands.
type fakeTransport struct {
	mu       sync.Mutex
	commands []string
	failOn   func(command string) error
	states   map[string]console.State
	stateErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{states: map[string]console.State{}}
}

func (f *fakeTransport) ExecuteCommand(_ context.Context, _ string, command string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != nil {
		if err := f.failOn(command); err != nil {
			return err
		}
	}
	f.commands = append(f.commands, command)
	return nil
}

func (f *fakeTransport) OnlinePlayers(_ context.Context, serverID string) (console.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stateErr != nil {
		return console.State{}, f.stateErr
	}
	return f.states[serverID], nil
}

func (f *fakeTransport) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

// fakeStore is an in-memory Store.
type fakeStore struct {
	defs   map[string]*Definition
	defErr error
	logs   []*LogEntry
	logErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{defs: map[string]*Definition{}}
}

func (f *fakeStore) Definition(_ context.Context, serverID string) (*Definition, error) {
	if f.defErr != nil {
		return nil, f.defErr
	}
	return f.defs[serverID], nil
}

func (f *fakeStore) SaveLog(_ context.Context, entry *LogEntry) error {
	if f.logErr != nil {
		return f.logErr
	}
	f.logs = append(f.logs, entry)
	return nil
}

// fakeWatcherStore is an in-memory WatcherStore.
type fakeWatcherStore struct {
	servers   []AutomatedServer
	snapshots map[string]Snapshot
	saveErr   error
	saves     int
}

func newFakeWatcherStore() *fakeWatcherStore {
	return &fakeWatcherStore{snapshots: map[string]Snapshot{}}
}

func (f *fakeWatcherStore) AutomatedServers(context.Context) ([]AutomatedServer, error) {
	return f.servers, nil
}

func (f *fakeWatcherStore) PresenceSnapshot(_ context.Context, serverID string) (Snapshot, error) {
	return f.snapshots[serverID], nil
}

func (f *fakeWatcherStore) SavePresenceSnapshot(_ context.Context, serverID string, snap Snapshot) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.snapshots[serverID] = snap
	return nil
}

// countingSleep replaces the interpreter's sleep and records durations.
func countingSleep(interp *Interpreter) *[]time.Duration {
	var slept []time.Duration
	interp.sleep = func(_ context.Context, d time.Duration) {
		slept = append(slept, d)
	}
	return &slept
}

func commandAction(id string, order int, command string) Action {
	return Action{
		ID: id, Type: ActionCommand, Order: order, Enabled: true,
		Command: &CommandConfig{Command: command},
	}
}

func failErr(command string) error {
	return fmt.Errorf("console rejected %q", command)
}
