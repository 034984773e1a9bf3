// Package storage persists what the in-memory core cannot afford to lose
// across restarts: the decision log, conversation snapshots, and identity
// links, all in a single SQLite file.
package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/taskflowhq/supportd/internal/conversation"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding decisions, snapshots and links.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "supportd.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Decision log ---

// SaveDecision appends one decision to the log.
func (s *Store) SaveDecision(d DecisionRecord) error {
	docs, err := json.Marshal(d.MatchedDocs)
	if err != nil {
		return fmt.Errorf("encoding matched docs: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO decisions (id, created_at, customer_id, conversation_id, channel, intent, sentiment, should_escalate, reason, escalation_id, confidence, matched_docs, response)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.CreatedAt.UTC().Format(time.RFC3339), d.CustomerID, d.ConversationID,
		d.Channel, d.Intent, d.Sentiment, d.ShouldEscalate, d.Reason, d.EscalationID,
		d.Confidence, string(docs), d.Response,
	)
	return err
}

// GetDecision looks one decision up by id.
func (s *Store) GetDecision(id string) (DecisionRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, created_at, customer_id, conversation_id, channel, intent, sentiment, should_escalate, reason, escalation_id, confidence, matched_docs, response
		FROM decisions WHERE id = ?`, id)
	d, err := scanDecision(row)
	if err == sql.ErrNoRows {
		return DecisionRecord{}, ErrNotFound
	}
	return d, err
}

// RecentDecisions returns up to limit decisions, newest first.
func (s *Store) RecentDecisions(limit int) ([]DecisionRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, customer_id, conversation_id, channel, intent, sentiment, should_escalate, reason, escalation_id, confidence, matched_docs, response
		FROM decisions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DecisionRecord
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (DecisionRecord, error) {
	var d DecisionRecord
	var createdAt, docs string
	err := row.Scan(&d.ID, &createdAt, &d.CustomerID, &d.ConversationID, &d.Channel,
		&d.Intent, &d.Sentiment, &d.ShouldEscalate, &d.Reason, &d.EscalationID,
		&d.Confidence, &docs, &d.Response)
	if err != nil {
		return DecisionRecord{}, err
	}
	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return DecisionRecord{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(docs), &d.MatchedDocs); err != nil {
		return DecisionRecord{}, fmt.Errorf("decoding matched docs: %w", err)
	}
	return d, nil
}

// --- Conversation snapshots ---

// SaveConversationSnapshot upserts the full JSON snapshot of a conversation.
func (s *Store) SaveConversationSnapshot(conv conversation.Conversation) error {
	payload, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encoding conversation %s: %w", conv.ID, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO conversation_snapshots (id, customer_id, status, snapshot_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_id = excluded.customer_id,
			status = excluded.status,
			snapshot_json = excluded.snapshot_json,
			updated_at = excluded.updated_at`,
		conv.ID, conv.CustomerID, string(conv.Status), string(payload),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// LoadConversations reads every persisted snapshot, for replay at startup.
func (s *Store) LoadConversations() ([]conversation.Conversation, error) {
	rows, err := s.db.Query("SELECT snapshot_json FROM conversation_snapshots")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []conversation.Conversation
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var conv conversation.Conversation
		if err := json.Unmarshal([]byte(payload), &conv); err != nil {
			return nil, fmt.Errorf("decoding conversation snapshot: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// --- Identity links ---

// SaveIdentityLink stores one symmetric link. Edges are normalized to
// (smaller, larger) so the same pair saved twice stays one row.
func (s *Store) SaveIdentityLink(a, b string) error {
	if b < a {
		a, b = b, a
	}
	_, err := s.db.Exec(`
		INSERT INTO identity_links (id_a, id_b, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id_a, id_b) DO NOTHING`,
		a, b, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// LoadIdentityLinks returns all stored edges, for replay at startup.
func (s *Store) LoadIdentityLinks() ([][2]string, error) {
	rows, err := s.db.Query("SELECT id_a, id_b FROM identity_links ORDER BY id_a, id_b")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links [][2]string
	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return nil, err
		}
		links = append(links, [2]string{a, b})
	}
	return links, rows.Err()
}
