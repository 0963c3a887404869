package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/loomworks/loom/pkg/models"
)

// Requirement is one accepted requirement, as recorded in the audit log.
type Requirement struct {
	GroupID     string    `json:"group_id"`
	Text        string    `json:"text"`
	Priority    int       `json:"priority"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Transition is one task status change.
type Transition struct {
	TaskID     string            `json:"task_id"`
	GroupID    string            `json:"group_id"`
	Capability models.Capability `json:"capability"`
	From       models.TaskStatus `json:"from"`
	To         models.TaskStatus `json:"to"`
	Detail     string            `json:"detail,omitempty"`
	At         time.Time         `json:"at"`
}

// RecordRequirement logs an accepted requirement.
func (db *DB) RecordRequirement(groupID, text string, priority int, at time.Time) error {
	_, err := db.Exec(
		"INSERT INTO requirements (group_id, text, priority, submitted_at) VALUES (?, ?, ?, ?)",
		groupID, text, priority, formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("record requirement: %w", err)
	}
	return nil
}

// RecordTransition logs one task status change. Detail carries the error
// string for failures and is empty otherwise.
func (db *DB) RecordTransition(t Transition) error {
	_, err := db.Exec(
		"INSERT INTO transitions (task_id, group_id, capability, from_status, to_status, detail, at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		t.TaskID, t.GroupID, string(t.Capability), string(t.From), string(t.To), t.Detail, formatTime(t.At),
	)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

// RecordDecision logs a resolved decision signal.
func (db *DB) RecordDecision(signalID, chosenOption string, at time.Time) error {
	_, err := db.Exec(
		"INSERT INTO decisions (signal_id, chosen_option, decided_at) VALUES (?, ?, ?)",
		signalID, chosenOption, formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

// Requirements returns all recorded requirements, oldest first.
func (db *DB) Requirements() ([]Requirement, error) {
	rows, err := db.Query("SELECT group_id, text, priority, submitted_at FROM requirements ORDER BY submitted_at")
	if err != nil {
		return nil, fmt.Errorf("query requirements: %w", err)
	}
	defer rows.Close()

	var out []Requirement
	for rows.Next() {
		var r Requirement
		var at string
		if err := rows.Scan(&r.GroupID, &r.Text, &r.Priority, &at); err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		if r.SubmittedAt, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("parse requirement time: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Transitions returns a group's transitions in the order they were recorded.
// An empty groupID returns all transitions.
func (db *DB) Transitions(groupID string) ([]Transition, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if groupID == "" {
		rows, err = db.Query("SELECT task_id, group_id, capability, from_status, to_status, detail, at FROM transitions ORDER BY id")
	} else {
		rows, err = db.Query("SELECT task_id, group_id, capability, from_status, to_status, detail, at FROM transitions WHERE group_id = ? ORDER BY id", groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		var cap, from, to, at string
		var detail sql.NullString
		if err := rows.Scan(&t.TaskID, &t.GroupID, &cap, &from, &to, &detail, &at); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.Capability = models.Capability(cap)
		t.From = models.TaskStatus(from)
		t.To = models.TaskStatus(to)
		t.Detail = detail.String
		if t.At, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("parse transition time: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Exec executes a query that doesn't return rows.
func (db *DB) Exec(query string, args ...any) (sql.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows.
func (db *DB) Query(query string, args ...any) (*sql.Rows, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.Query(query, args...)
}
