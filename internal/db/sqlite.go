package db

import (
	"database/sql"
	"time"

	"github.com/RichardoC/support-widget/internal/models"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS widget_state (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    failed INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

// SessionKey is the widget_state row holding the current support session id.
const SessionKey = "support_session_id"

// ErrNotFound is returned when a state key has never been written.
var ErrNotFound = errors.New("db: key not found")

type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	if dbPath == "" {
		return nil, errors.New("db: empty path")
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrapf(err, "db: open %s", dbPath)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "db: migrate %s", dbPath)
	}

	return &Database{db: db}, nil
}

func (db *Database) Close() error {
	if db == nil || db.db == nil {
		return nil
	}
	return db.db.Close()
}

func (db *Database) GetState(key string) (string, error) {
	var value string
	err := db.db.QueryRow(`SELECT value FROM widget_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "db: read %s", key)
	}
	return value, nil
}

func (db *Database) SetState(key, value string) error {
	_, err := db.db.Exec(`
        INSERT INTO widget_state (key, value, updated_at)
        VALUES (?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(key) DO UPDATE SET
            value = excluded.value,
            updated_at = excluded.updated_at`, key, value)
	return errors.Wrapf(err, "db: write %s", key)
}

func (db *Database) DeleteState(key string) error {
	_, err := db.db.Exec(`DELETE FROM widget_state WHERE key = ?`, key)
	return errors.Wrapf(err, "db: delete %s", key)
}

// LoadSessionID, SaveSessionID and ClearSessionID make Database usable as a
// session.Backend.
func (db *Database) LoadSessionID() (string, error) {
	return db.GetState(SessionKey)
}

func (db *Database) SaveSessionID(id string) error {
	return db.SetState(SessionKey, id)
}

func (db *Database) ClearSessionID() error {
	return db.DeleteState(SessionKey)
}

func (db *Database) SaveMessage(msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	failed := 0
	if msg.Failed {
		failed = 1
	}

	query := `
        INSERT INTO messages (id, role, content, failed, created_at)
        VALUES (?, ?, ?, ?, ?)`

	_, err := db.db.Exec(query, msg.ID, msg.Role, msg.Content, failed, msg.CreatedAt)
	return errors.Wrap(err, "db: save message")
}

// GetConversationHistory returns the newest limit messages, oldest first.
func (db *Database) GetConversationHistory(limit int) ([]models.Message, error) {
	query := `
        SELECT id, role, content, failed, created_at FROM (
            SELECT seq, id, role, content, failed, created_at
            FROM messages
            ORDER BY seq DESC
            LIMIT ?
        ) ORDER BY seq ASC`

	rows, err := db.db.Query(query, limit)
	if err != nil {
		return []models.Message{}, errors.Wrap(err, "db: query history")
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		var failed int
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &failed, &msg.CreatedAt); err != nil {
			return []models.Message{}, errors.Wrap(err, "db: scan message")
		}
		msg.Failed = failed != 0
		messages = append(messages, msg)
	}
	return messages, errors.Wrap(rows.Err(), "db: iterate history")
}

func (db *Database) ClearMessages() error {
	_, err := db.db.Exec("DELETE FROM messages")
	return errors.Wrap(err, "db: clear messages")
}
