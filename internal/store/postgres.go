package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ppiankov/testament/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS wills (
	id          UUID PRIMARY KEY,
	template    TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	stage       TEXT NOT NULL,
	skipped     TEXT[] NOT NULL DEFAULT '{}',
	body        TEXT NOT NULL DEFAULT '',
	contacts    JSONB NOT NULL DEFAULT '[]',
	transcript  JSONB NOT NULL DEFAULT '[]',
	facts       JSONB NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`

// PostgresStore keeps wills in a single postgres table
type PostgresStore struct {
	Db *sql.DB
}

// OpenPostgres connects to dsn and creates the schema if missing
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{Db: db}, nil
}

func (s *PostgresStore) SaveDraft(ctx context.Context, text string, meta Meta) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.Db.ExecContext(
		ctx,
		`INSERT INTO wills(id, template, title, stage, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		id,
		string(meta.Template),
		meta.Title,
		meta.Stage.String(),
		text,
		now,
	)
	if err != nil {
		return "", fmt.Errorf("error inserting will: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateDraft(ctx context.Context, id string, fields Fields) error {
	var stage sql.NullString
	if fields.Stage != nil {
		stage = sql.NullString{String: fields.Stage.String(), Valid: true}
	}
	var skipped interface{}
	if fields.Skipped != nil {
		skipped = pq.Array(stageNames(*fields.Skipped))
	}

	res, err := s.Db.ExecContext(
		ctx,
		`UPDATE wills SET
			body = COALESCE($2, body),
			title = COALESCE($3, title),
			stage = COALESCE($4, stage),
			skipped = COALESCE($5, skipped),
			updated_at = $6
		WHERE id = $1`,
		id,
		nullString(fields.Text),
		nullString(fields.Title),
		stage,
		skipped,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("error updating will: %w", err)
	}
	return expectRow(res)
}

func (s *PostgresStore) SaveContacts(ctx context.Context, willID string, contacts []model.Contact) error {
	if contacts == nil {
		contacts = []model.Contact{}
	}
	data, err := json.Marshal(contacts)
	if err != nil {
		return fmt.Errorf("encode contacts: %w", err)
	}

	res, err := s.Db.ExecContext(
		ctx,
		`UPDATE wills SET contacts = $2, updated_at = $3 WHERE id = $1`,
		willID,
		string(data),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("error saving contacts: %w", err)
	}
	return expectRow(res)
}

func (s *PostgresStore) SaveTranscript(ctx context.Context, willID string, transcript []model.Message, facts model.Facts) error {
	if transcript == nil {
		transcript = []model.Message{}
	}
	messages, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	factData, err := json.Marshal(facts)
	if err != nil {
		return fmt.Errorf("encode facts: %w", err)
	}

	res, err := s.Db.ExecContext(
		ctx,
		`UPDATE wills SET transcript = $2, facts = $3, updated_at = $4 WHERE id = $1`,
		willID,
		string(messages),
		string(factData),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("error saving transcript: %w", err)
	}
	return expectRow(res)
}

const selectWill = `SELECT id, template, title, stage, skipped, body, contacts, transcript, facts, created_at, updated_at FROM wills`

func (s *PostgresStore) Load(ctx context.Context, id string) (*Will, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	w, err := scanWill(s.Db.QueryRowContext(ctx, selectWill+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Will, error) {
	rows, err := s.Db.QueryContext(ctx, selectWill+` ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("error listing wills: %w", err)
	}
	defer rows.Close()

	var out []Will
	for rows.Next() {
		w, err := scanWill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error listing wills: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	return s.Db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWill(row rowScanner) (*Will, error) {
	var (
		w                          Will
		template, stage            string
		skipped                    []string
		contacts, transcript, fact []byte
	)
	err := row.Scan(
		&w.ID,
		&template,
		&w.Title,
		&stage,
		pq.Array(&skipped),
		&w.Text,
		&contacts,
		&transcript,
		&fact,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("error scanning will row: %w", err)
	}

	w.Template = model.TemplateKind(template)
	w.Stage, _ = model.ParseStage(stage)
	for _, name := range skipped {
		if st, ok := model.ParseStage(name); ok {
			w.Skipped = append(w.Skipped, st)
		}
	}
	if err := json.Unmarshal(contacts, &w.Contacts); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", err)
	}
	if err := json.Unmarshal(transcript, &w.Transcript); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	if err := json.Unmarshal(fact, &w.Facts); err != nil {
		return nil, fmt.Errorf("decode facts: %w", err)
	}
	return &w, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stageNames(stages []model.Stage) []string {
	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = st.String()
	}
	return names
}
