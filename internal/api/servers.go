package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/craftdeck/craftdeck/internal/automation"
	"github.com/craftdeck/craftdeck/internal/docker"
	"github.com/craftdeck/craftdeck/internal/game"
)

type ServerHandler struct {
	db          *sql.DB
	docker      *docker.Client
	dataDir     string
	automations *automation.Dispatcher
}

type Server struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Game        string            `json:"game"`
	ContainerID string            `json:"container_id,omitempty"`
	Image       string            `json:"image"`
	GamePort    string            `json:"game_port"`
	Env         map[string]string `json:"env"`
	MemoryLimit int64             `json:"memory_limit"`
	CPULimit    float64           `json:"cpu_limit"`
	Status      string            `json:"status"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

func NewServerHandler(db *sql.DB, dockerClient *docker.Client, dataDir string, automations *automation.Dispatcher) *ServerHandler {
	return &ServerHandler{
		db:          db,
		docker:      dockerClient,
		dataDir:     dataDir,
		automations: automations,
	}
}

// Games lists the supported game types and their deployment defaults.
func (h *ServerHandler) Games(w http.ResponseWriter, r *http.Request) {
	type gameInfo struct {
		Game  string `json:"game"`
		Image string `json:"image"`
		Port  string `json:"port"`
	}
	games := []gameInfo{}
	for _, adapter := range game.All() {
		games = append(games, gameInfo{
			Game:  adapter.Game(),
			Image: adapter.DefaultImage(),
			Port:  adapter.DefaultPort(),
		})
	}
	writeJSON(w, http.StatusOK, games)
}

func (h *ServerHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(serverColumns + ` FROM servers ORDER BY created_at DESC`)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query servers")
		return
	}
	defer rows.Close()

	servers := []Server{}
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to scan server")
			return
		}
		servers = append(servers, s)
	}

	// Sync status with Docker with a short timeout; if Docker is slow,
	// return the stored status.
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for i := range servers {
		if servers[i].ContainerID == "" {
			continue
		}
		if status, err := h.docker.ContainerStatus(ctx, servers[i].ContainerID); err == nil {
			servers[i].Status = status
			h.db.Exec("UPDATE servers SET status = ? WHERE id = ?", status, servers[i].ID)
		}
	}

	writeJSON(w, http.StatusOK, servers)
}

func (h *ServerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.getServer(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}
	if s.ContainerID != "" {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if status, err := h.docker.ContainerStatus(ctx, s.ContainerID); err == nil {
			s.Status = status
			h.db.Exec("UPDATE servers SET status = ? WHERE id = ?", status, s.ID)
		}
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *ServerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string            `json:"name"`
		Game   string            `json:"game"`
		Env    map[string]string `json:"env"`
		Port   string            `json:"port"`
		Memory string            `json:"memory"`
		CPU    float64           `json:"cpu"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Game == "" {
		writeError(w, http.StatusBadRequest, "name and game required")
		return
	}

	adapter := game.Get(req.Game)
	if adapter == nil {
		writeError(w, http.StatusBadRequest, "unsupported game: "+req.Game)
		return
	}

	id := uuid.New().String()[:8]
	port := req.Port
	if port == "" {
		port = adapter.DefaultPort()
	}

	serverDataDir := filepath.Join(h.dataDir, "servers", id)
	if err := os.MkdirAll(serverDataDir, 0755); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create data directory")
		return
	}

	image := adapter.DefaultImage()
	log.Printf("Pulling image %s...", image)
	if err := h.docker.PullImage(r.Context(), image); err != nil {
		log.Printf("Warning: failed to pull image (may already exist locally): %v", err)
	}

	containerID, err := h.docker.CreateContainer(r.Context(), docker.ContainerConfig{
		Name:        fmt.Sprintf("craftdeck-%s-%s", req.Game, id),
		Image:       image,
		Env:         req.Env,
		GamePort:    port,
		DataDir:     serverDataDir,
		MemoryLimit: parseMemory(req.Memory),
		CPULimit:    req.CPU,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create container: %v", err))
		return
	}

	envJSON, _ := json.Marshal(req.Env)
	_, err = h.db.Exec(`INSERT INTO servers (id, name, game, container_id, image, game_port, env, memory_limit, cpu_limit, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, req.Name, req.Game, containerID, image, port, string(envJSON),
		parseMemory(req.Memory), req.CPU, "created",
	)
	if err != nil {
		h.docker.RemoveContainer(context.Background(), containerID)
		writeError(w, http.StatusInternalServerError, "failed to save server")
		return
	}

	s, _ := h.getServer(id)
	writeJSON(w, http.StatusCreated, s)
}

func (h *ServerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := h.db.Exec("UPDATE servers SET name = ?, updated_at = ? WHERE id = ?", req.Name, time.Now(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update server")
		return
	}
	s, _ := h.getServer(id)
	writeJSON(w, http.StatusOK, s)
}

func (h *ServerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.getServer(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}

	if s.ContainerID != "" {
		h.docker.RemoveContainer(r.Context(), s.ContainerID)
	}
	os.RemoveAll(filepath.Join(h.dataDir, "servers", id))

	h.db.Exec("DELETE FROM servers WHERE id = ?", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "server deleted"})
}

func (h *ServerHandler) Start(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.getServer(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}
	if err := h.docker.StartContainer(r.Context(), s.ContainerID); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to start: %v", err))
		return
	}
	h.db.Exec("UPDATE servers SET status = 'running', updated_at = ? WHERE id = ?", time.Now(), id)

	// The start automation runs off the request path; its outcome is only
	// visible in the execution log.
	h.automations.Submit(id, automation.TriggerStart, invokedBy(r))

	writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

func (h *ServerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.getServer(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}
	// Ask the server process to save and exit before the container-level
	// stop; the SIGTERM fallback still applies if the command is ignored.
	if adapter := game.Get(s.Game); adapter != nil && s.ContainerID != "" {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		if err := h.docker.SendCommand(ctx, s.ContainerID, adapter.StopCommand()); err != nil {
			log.Printf("server %s: graceful stop command: %v", id, err)
		}
		cancel()
	}

	if err := h.docker.StopContainer(r.Context(), s.ContainerID); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to stop: %v", err))
		return
	}
	h.db.Exec("UPDATE servers SET status = 'exited', updated_at = ? WHERE id = ?", time.Now(), id)

	h.automations.Submit(id, automation.TriggerStop, invokedBy(r))

	writeJSON(w, http.StatusOK, map[string]string{"status": "exited"})
}

func (h *ServerHandler) Restart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.getServer(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}
	if err := h.docker.RestartContainer(r.Context(), s.ContainerID); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to restart: %v", err))
		return
	}
	h.db.Exec("UPDATE servers SET status = 'running', updated_at = ? WHERE id = ?", time.Now(), id)

	h.automations.Submit(id, automation.TriggerStart, invokedBy(r))

	writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

func invokedBy(r *http.Request) string {
	if user := currentUser(r); user != nil {
		return user.Username
	}
	return "api"
}

const serverColumns = `SELECT id, name, game, container_id, image, game_port, env, memory_limit, cpu_limit, status, created_at, updated_at`

func (h *ServerHandler) getServer(id string) (Server, error) {
	row := h.db.QueryRow(serverColumns+` FROM servers WHERE id = ?`, id)
	return scanServer(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanServer(row rowScanner) (Server, error) {
	var s Server
	var envJSON string
	var containerID sql.NullString
	err := row.Scan(&s.ID, &s.Name, &s.Game, &containerID, &s.Image, &s.GamePort,
		&envJSON, &s.MemoryLimit, &s.CPULimit, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}
	s.ContainerID = containerID.String
	json.Unmarshal([]byte(envJSON), &s.Env)
	if s.Env == nil {
		s.Env = map[string]string{}
	}
	return s, nil
}

// parseMemory parses a memory string like "2G" or "512M" to bytes.
func parseMemory(s string) int64 {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" || s == "0" {
		return 0
	}
	multiplier := int64(1)
	if strings.HasSuffix(s, "G") {
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-1]
	} else if strings.HasSuffix(s, "M") {
		multiplier = 1024 * 1024
		s = s[:len(s)-1]
	}
	val, _ := strconv.ParseInt(s, 10, 64)
	return val * multiplier
}
