// Package postgres provides a state store backed by PostgreSQL for
// multi-process deployments. Last write wins; there is no cross-process
// locking on tab state.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"pkt.systems/tabwise/core"
	"pkt.systems/tabwise/schema"
)

// Store persists tab bindings in the browser_tab_state table.
type Store struct {
	db *sql.DB
}

var openDB = sql.Open

// New opens a connection pool and verifies the schema is present.
func New(conn string) (*Store, error) {
	db, err := openDB("pgx", conn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := verifySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func verifySchema(ctx context.Context, db *sql.DB) error {
	var regclass sql.NullString
	if err := db.QueryRowContext(ctx, "SELECT to_regclass($1)", "public.browser_tab_state").Scan(&regclass); err != nil {
		return err
	}
	if !regclass.Valid {
		return fmt.Errorf("database schema missing: browser_tab_state table not found")
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key schema.ConversationKey) (schema.TabState, bool, error) {
	const query = `
		SELECT url, tab_index
		FROM browser_tab_state
		WHERE agent_id = $1 AND user_id = $2 AND conversation_id = $3
	`
	var url string
	var tabIndex sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, key.AgentID, key.UserID, key.ConversationID).Scan(&url, &tabIndex)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.TabState{}, false, nil
	}
	if err != nil {
		return schema.TabState{}, false, err
	}
	state := schema.TabState{URL: url}
	if tabIndex.Valid {
		state.TabIndex = int(tabIndex.Int64)
		state.HasIndex = true
	}
	return state, true, nil
}

func (s *Store) Upsert(ctx context.Context, key schema.ConversationKey, state schema.TabState) error {
	const query = `
		INSERT INTO browser_tab_state (agent_id, user_id, conversation_id, url, tab_index, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (agent_id, user_id, conversation_id)
		DO UPDATE SET url = EXCLUDED.url, tab_index = EXCLUDED.tab_index, updated_at = now()
	`
	_, err := s.db.ExecContext(ctx, query, key.AgentID, key.UserID, key.ConversationID, state.URL, nullIndex(state))
	return err
}

func (s *Store) UpdateURL(ctx context.Context, key schema.ConversationKey, url string) error {
	const query = `
		INSERT INTO browser_tab_state (agent_id, user_id, conversation_id, url, tab_index, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULL, now(), now())
		ON CONFLICT (agent_id, user_id, conversation_id)
		DO UPDATE SET url = EXCLUDED.url, updated_at = now()
	`
	_, err := s.db.ExecContext(ctx, query, key.AgentID, key.UserID, key.ConversationID, url)
	return err
}

func (s *Store) Delete(ctx context.Context, key schema.ConversationKey) error {
	const query = `
		DELETE FROM browser_tab_state
		WHERE agent_id = $1 AND user_id = $2 AND conversation_id = $3
	`
	_, err := s.db.ExecContext(ctx, query, key.AgentID, key.UserID, key.ConversationID)
	return err
}

func (s *Store) OldestForUser(ctx context.Context, userID schema.UserID) (core.StoredTab, bool, error) {
	const query = `
		SELECT agent_id, conversation_id, url, tab_index
		FROM browser_tab_state
		WHERE user_id = $1
		ORDER BY created_at ASC
		LIMIT 1
	`
	var agentID, conversationID, url string
	var tabIndex sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&agentID, &conversationID, &url, &tabIndex)
	if errors.Is(err, sql.ErrNoRows) {
		return core.StoredTab{}, false, nil
	}
	if err != nil {
		return core.StoredTab{}, false, err
	}
	state := schema.TabState{URL: url}
	if tabIndex.Valid {
		state.TabIndex = int(tabIndex.Int64)
		state.HasIndex = true
	}
	return core.StoredTab{
		Key: schema.ConversationKey{
			AgentID:        schema.AgentID(agentID),
			UserID:         userID,
			ConversationID: schema.ConversationID(conversationID),
		},
		State: state,
	}, true, nil
}

func nullIndex(state schema.TabState) any {
	if !state.HasIndex {
		return nil
	}
	return state.TabIndex
}
