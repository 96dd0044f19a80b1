package api

import (
	"database/sql"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/craftdeck/craftdeck/internal/docker"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type ConsoleHandler struct {
	db     *sql.DB
	docker *docker.Client
}

func NewConsoleHandler(db *sql.DB, dockerClient *docker.Client) *ConsoleHandler {
	return &ConsoleHandler{db: db, docker: dockerClient}
}

// Handle bridges a websocket to the server console: log stream out, typed
// commands in. Containers are created with a TTY, so the log stream is raw
// with no multiplexing headers.
func (h *ConsoleHandler) Handle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var containerID string
	err := h.db.QueryRow("SELECT container_id FROM servers WHERE id = ?", id).Scan(&containerID)
	if err != nil {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	logReader, err := h.docker.ContainerLogs(r.Context(), containerID, "100")
	if err != nil {
		conn.WriteMessage(websocket.TextMessage, []byte("Error: "+err.Error()))
		return
	}
	defer logReader.Close()

	// Websocket -> container stdin
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := h.docker.SendCommand(r.Context(), containerID, string(msg)); err != nil {
				log.Printf("console: send command: %v", err)
			}
		}
	}()

	// Container logs -> websocket
	buf := make([]byte, 4096)
	for {
		n, err := logReader.Read(buf)
		if n > 0 {
			if writeErr := conn.WriteMessage(websocket.TextMessage, buf[:n]); writeErr != nil {
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("log read error: %v", err)
			}
			return
		}
	}
}
