package checkout

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore persists checkout sessions as JSONB state rows.
type PostgresStore struct {
	db *sql.DB
}

// ConnectPostgres opens a connection, retrying briefly so the gateway
// can start alongside the database.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			return db, nil
		}
		log.Printf("[Store] Waiting for PostgreSQL... (%d/10)", i+1)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("connecting to postgres: %w", err)
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the sessions table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS checkout_sessions (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			step       INT NOT NULL,
			state      JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating checkout_sessions table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, sess *Session) error {
	state, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkout_sessions (id, user_id, step, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET step = EXCLUDED.step, state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
		sess.ID, sess.User.UserID, int(sess.Step), state, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	var state []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM checkout_sessions WHERE id = $1`, id).Scan(&state)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	var sess Session
	if err := json.Unmarshal(state, &sess); err != nil {
		return nil, fmt.Errorf("unmarshaling session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM checkout_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}
