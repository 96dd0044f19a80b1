package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLStore persists definitions, presence snapshots, and execution logs in
// sqlite. Sequences live as one JSON document per server; logs are
// append-only rows.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// sequenceDoc is the stored shape of a definition's four sequence slots.
type sequenceDoc struct {
	OnStart       *Sequence `json:"on_start,omitempty"`
	OnStop        *Sequence `json:"on_stop,omitempty"`
	OnPlayerJoin  *Sequence `json:"on_player_join,omitempty"`
	OnPlayerLeave *Sequence `json:"on_player_leave,omitempty"`
}

func (s *SQLStore) Definition(ctx context.Context, serverID string) (*Definition, error) {
	var (
		enabled  int
		seqJSON  string
		editedBy string
		created  string
		updated  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT enabled, sequences, last_edited_by, created_at, updated_at
		FROM automations WHERE server_id = ?`, serverID,
	).Scan(&enabled, &seqJSON, &editedBy, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load definition: %w", err)
	}

	var doc sequenceDoc
	if err := json.Unmarshal([]byte(seqJSON), &doc); err != nil {
		return nil, fmt.Errorf("decode sequences for %s: %w", serverID, err)
	}

	return &Definition{
		ServerID:      serverID,
		Enabled:       enabled == 1,
		OnStart:       doc.OnStart,
		OnStop:        doc.OnStop,
		OnPlayerJoin:  doc.OnPlayerJoin,
		OnPlayerLeave: doc.OnPlayerLeave,
		LastEditedBy:  editedBy,
		CreatedAt:     created,
		UpdatedAt:     updated,
	}, nil
}

// SaveDefinition validates and upserts a definition. This is the
// administrative edit path; the engine itself never writes definitions.
func (s *SQLStore) SaveDefinition(ctx context.Context, def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	doc, err := json.Marshal(sequenceDoc{
		OnStart:       def.OnStart,
		OnStop:        def.OnStop,
		OnPlayerJoin:  def.OnPlayerJoin,
		OnPlayerLeave: def.OnPlayerLeave,
	})
	if err != nil {
		return fmt.Errorf("encode sequences: %w", err)
	}

	enabled := 0
	if def.Enabled {
		enabled = 1
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO automations (server_id, enabled, sequences, last_edited_by)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(server_id) DO UPDATE SET
			enabled = excluded.enabled,
			sequences = excluded.sequences,
			last_edited_by = excluded.last_edited_by,
			updated_at = CURRENT_TIMESTAMP`,
		def.ServerID, enabled, string(doc), def.LastEditedBy,
	)
	if err != nil {
		return fmt.Errorf("save definition: %w", err)
	}
	return nil
}

func (s *SQLStore) SaveLog(ctx context.Context, entry *LogEntry) error {
	errJSON, err := json.Marshal(entry.Errors)
	if err != nil {
		return err
	}
	success := 0
	if entry.Success {
		success = 1
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO automation_logs
			(id, server_id, sequence_id, sequence_name, trigger_name, executed_at, executed_by,
			success, actions_executed, actions_failed, errors, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ServerID, entry.SequenceID, entry.SequenceName, string(entry.Trigger),
		entry.ExecutedAt.UTC().Format(time.RFC3339), entry.ExecutedBy,
		success, entry.ActionsExecuted, entry.ActionsFailed, string(errJSON), entry.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("save log: %w", err)
	}
	return nil
}

// Logs returns the most recent execution log entries for a server.
func (s *SQLStore) Logs(ctx context.Context, serverID string, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, server_id, sequence_id, sequence_name, trigger_name, executed_at, executed_by,
			success, actions_executed, actions_failed, errors, duration_ms
		FROM automation_logs WHERE server_id = ?
		ORDER BY executed_at DESC LIMIT ?`, serverID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	entries := []LogEntry{}
	for rows.Next() {
		var (
			e          LogEntry
			trigger    string
			executedAt string
			success    int
			errJSON    string
		)
		if err := rows.Scan(&e.ID, &e.ServerID, &e.SequenceID, &e.SequenceName, &trigger,
			&executedAt, &e.ExecutedBy, &success, &e.ActionsExecuted, &e.ActionsFailed,
			&errJSON, &e.DurationMS); err != nil {
			continue
		}
		e.Trigger = Trigger(trigger)
		e.Success = success == 1
		e.ExecutedAt, _ = time.Parse(time.RFC3339, executedAt)
		json.Unmarshal([]byte(errJSON), &e.Errors)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) AutomatedServers(ctx context.Context) ([]AutomatedServer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.server_id, srv.name, a.sequences
		FROM automations a JOIN servers srv ON a.server_id = srv.id
		WHERE a.enabled = 1`,
	)
	if err != nil {
		return nil, fmt.Errorf("list automated servers: %w", err)
	}
	defer rows.Close()

	var servers []AutomatedServer
	for rows.Next() {
		var (
			srv     AutomatedServer
			seqJSON string
		)
		if err := rows.Scan(&srv.ID, &srv.Name, &seqJSON); err != nil {
			continue
		}
		var doc sequenceDoc
		if err := json.Unmarshal([]byte(seqJSON), &doc); err != nil {
			continue
		}
		def := Definition{OnPlayerJoin: doc.OnPlayerJoin, OnPlayerLeave: doc.OnPlayerLeave}
		if def.HasPresenceTriggers() {
			servers = append(servers, srv)
		}
	}
	return servers, rows.Err()
}

func (s *SQLStore) PresenceSnapshot(ctx context.Context, serverID string) (Snapshot, error) {
	var (
		snap        Snapshot
		playersJSON string
		greetedJSON string
		lastChecked sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT players, greeted_players, last_server_status, last_checked
		FROM presence WHERE server_id = ?`, serverID,
	).Scan(&playersJSON, &greetedJSON, &snap.LastStatus, &lastChecked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	json.Unmarshal([]byte(playersJSON), &snap.Players)
	json.Unmarshal([]byte(greetedJSON), &snap.Greeted)
	if lastChecked.Valid {
		snap.LastChecked, _ = time.Parse(time.RFC3339, lastChecked.String)
	}
	return snap, nil
}

func (s *SQLStore) SavePresenceSnapshot(ctx context.Context, serverID string, snap Snapshot) error {
	players, err := json.Marshal(emptyIfNil(snap.Players))
	if err != nil {
		return err
	}
	greeted, err := json.Marshal(emptyIfNil(snap.Greeted))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO presence (server_id, players, greeted_players, last_server_status, last_checked)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(server_id) DO UPDATE SET
			players = excluded.players,
			greeted_players = excluded.greeted_players,
			last_server_status = excluded.last_server_status,
			last_checked = excluded.last_checked`,
		serverID, string(players), string(greeted), snap.LastStatus,
		snap.LastChecked.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
