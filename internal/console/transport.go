// Package console is the command transport between the panel and a hosted
// game server process. One call sends one raw console command; there are no
// retries and no batching here.
package console

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/craftdeck/craftdeck/internal/docker"
	"github.com/craftdeck/craftdeck/internal/game"
)

// StatusRunning is the only status value the automation engine treats as a
// running server.
const StatusRunning = 1

var ErrServerNotFound = errors.New("server not found")

// State is a point-in-time presence snapshot of a remote server.
type State struct {
	Status  int      `json:"status"`
	Players []string `json:"players"`
}

// Transport sends console commands and reads player presence.
type Transport interface {
	// ExecuteCommand sends one raw console command to a server's process.
	ExecuteCommand(ctx context.Context, serverID, command string) error

	// OnlinePlayers reports the server status and current online players.
	OnlinePlayers(ctx context.Context, serverID string) (State, error)
}

// DockerTransport implements Transport against Docker-hosted servers.
// Commands go to the container's stdin; player lists come from an in-container
// query command defined by the game adapter.
type DockerTransport struct {
	db     *sql.DB
	docker *docker.Client
}

func NewDockerTransport(db *sql.DB, dockerClient *docker.Client) *DockerTransport {
	return &DockerTransport{db: db, docker: dockerClient}
}

func (t *DockerTransport) lookup(serverID string) (containerID, gameID string, err error) {
	var cid sql.NullString
	err = t.db.QueryRow("SELECT container_id, game FROM servers WHERE id = ?", serverID).Scan(&cid, &gameID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrServerNotFound
		}
		return "", "", err
	}
	if !cid.Valid || cid.String == "" {
		return "", "", fmt.Errorf("server %s has no container", serverID)
	}
	return cid.String, gameID, nil
}

func (t *DockerTransport) ExecuteCommand(ctx context.Context, serverID, command string) error {
	containerID, _, err := t.lookup(serverID)
	if err != nil {
		return err
	}
	return t.docker.SendCommand(ctx, containerID, command)
}

func (t *DockerTransport) OnlinePlayers(ctx context.Context, serverID string) (State, error) {
	containerID, gameID, err := t.lookup(serverID)
	if err != nil {
		return State{}, err
	}

	status, err := t.docker.ContainerStatus(ctx, containerID)
	if err != nil {
		return State{}, fmt.Errorf("container status: %w", err)
	}
	if status != "running" {
		return State{Status: 0}, nil
	}

	adapter := game.Get(gameID)
	if adapter == nil {
		return State{}, fmt.Errorf("no adapter for game %q", gameID)
	}

	output, err := t.docker.ExecCapture(ctx, containerID, adapter.QueryCommand(adapter.ListCommand()))
	if err != nil {
		return State{}, fmt.Errorf("list players: %w", err)
	}
	return State{Status: StatusRunning, Players: adapter.ParsePlayerList(output)}, nil
}
