package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListDocuments returns the collection in creation order.
func (s *PostgresStore) ListDocuments(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fields, created_at, updated_at
		FROM documents
		WHERE collection = $1
		ORDER BY created_at ASC, id ASC
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		doc := Document{Collection: collection}
		var fields []byte
		if err := rows.Scan(&doc.ID, &fields, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Fields = json.RawMessage(fields)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// UpsertDocument replaces the whole document stored under id.
func (s *PostgresStore) UpsertDocument(ctx context.Context, collection, id string, fields json.RawMessage) error {
	if !json.Valid(fields) {
		return fmt.Errorf("upsert document %s: fields are not valid JSON", id)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, fields)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id)
		DO UPDATE SET fields = EXCLUDED.fields, updated_at = NOW()
	`, collection, id, string(fields))
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, tokenHash string, session Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identity_sessions (token_hash, uid, role, anonymous, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (token_hash)
		DO UPDATE SET role = EXCLUDED.role, expires_at = EXCLUDED.expires_at
	`, tokenHash, session.UID, session.Role, session.Anonymous, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupSession(ctx context.Context, tokenHash string) (Session, error) {
	var session Session
	err := s.db.QueryRowContext(ctx, `
		SELECT uid, role, anonymous, created_at, expires_at
		FROM identity_sessions
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > $2
	`, tokenHash, time.Now()).Scan(&session.UID, &session.Role, &session.Anonymous, &session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup session: %w", err)
	}
	return session, nil
}

func (s *PostgresStore) RevokeSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE identity_sessions SET revoked_at = NOW()
		WHERE token_hash = $1 AND revoked_at IS NULL
	`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
