// Package sqlite is an embedded document store backed by SQLite.
//
// Documents are kept as JSON. Query payloads are evaluated in Go against the
// decoded documents after a coarse SQL prefilter on owner and application
// id. Scoring is weighted term presence, good enough for local development
// and tests.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/giyikalim/smart-notes/internal/apperr"
	"github.com/giyikalim/smart-notes/internal/query"
	"github.com/giyikalim/smart-notes/internal/store"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	app_id     TEXT NOT NULL DEFAULT '',
	owner_id   TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id);
CREATE INDEX IF NOT EXISTS idx_documents_app ON documents(app_id);
`

// Store implements store.Store.
type Store struct {
	conn *sql.DB
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time used for "now" in range queries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (or creates) the database file and applies the schema.
func Open(dsn string, opts ...Option) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	s := &Store{conn: conn, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Index stores doc under a fresh UUID.
func (s *Store) Index(ctx context.Context, doc any) (string, error) {
	src, err := toMap(doc)
	if err != nil {
		return "", fmt.Errorf("sqlite: index: %w", err)
	}
	data, err := json.Marshal(src)
	if err != nil {
		return "", fmt.Errorf("sqlite: index: %w", err)
	}

	id := uuid.NewString()
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO documents (id, app_id, owner_id, source, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, str(src[query.FieldID]), str(src[query.FieldOwner]), string(data), s.now().UTC())
	if err != nil {
		return "", fmt.Errorf("sqlite: index: %w", err)
	}
	return id, nil
}

// Get returns the document with the given id.
func (s *Store) Get(ctx context.Context, id string) (*store.Hit, error) {
	var src string
	err := s.conn.QueryRowContext(ctx, `SELECT source FROM documents WHERE id = ?`, id).Scan(&src)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get: %w", err)
	}
	return &store.Hit{ID: id, Source: json.RawMessage(src)}, nil
}

// Update deep-merges partial into the stored document.
func (s *Store) Update(ctx context.Context, id string, partial any) error {
	patch, err := toMap(partial)
	if err != nil {
		return fmt.Errorf("sqlite: update: %w", err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT source FROM documents WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("sqlite: update: %w", err)
	}

	var src map[string]any
	if err := json.Unmarshal([]byte(raw), &src); err != nil {
		return fmt.Errorf("sqlite: decode %s: %w", id, err)
	}
	merge(src, patch)
	if err := s.write(ctx, tx, id, src); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes the document with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Search evaluates req against every candidate document.
func (s *Store) Search(ctx context.Context, req *query.Request) (*store.SearchResult, error) {
	docs, err := s.candidates(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	ev := &evaluator{now: s.now()}
	var matched []scored
	for _, d := range docs {
		ok, score := ev.match(req.Query, d.src)
		if ok {
			matched = append(matched, scored{document: d, score: score})
		}
	}
	ev.sort(matched, req.Sort)

	res := &store.SearchResult{Total: len(matched)}
	if len(req.Aggs) > 0 {
		res.Aggregations = ev.aggregate(req.Aggs, matched)
	}

	page := window(matched, req.From, req.Size)
	var hl *highlighter
	if req.Highlight != nil {
		hl = newHighlighter(req.Highlight, req.Query)
	}
	for _, m := range page {
		h := store.Hit{ID: m.id, Score: m.score, Source: m.raw}
		if hl != nil {
			h.Highlight = hl.fragments(m.src)
		}
		res.Hits = append(res.Hits, h)
	}
	return res, nil
}

// UpdateByQuery applies the script's field assignments to every match.
func (s *Store) UpdateByQuery(ctx context.Context, req *query.UpdateByQuery) (int, error) {
	assign, err := parseScript(req.Script)
	if err != nil {
		return 0, err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	docs, err := scan(ctx, tx, req.Query)
	if err != nil {
		return 0, err
	}

	ev := &evaluator{now: s.now()}
	updated := 0
	for _, d := range docs {
		if ok, _ := ev.match(req.Query, d.src); !ok {
			continue
		}
		for _, a := range assign {
			setPath(d.src, a.field, a.value)
		}
		if err := s.write(ctx, tx, d.id, d.src); err != nil {
			return 0, err
		}
		updated++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return updated, nil
}

type document struct {
	id  string
	raw json.RawMessage
	src map[string]any
}

type scored struct {
	document
	score float64
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) candidates(ctx context.Context, q *query.Query) ([]document, error) {
	return scan(ctx, s.conn, q)
}

// scan loads every document that could match q, narrowed by the owner and
// application id terms when q requires them.
func scan(ctx context.Context, db queryer, q *query.Query) ([]document, error) {
	stmt := `SELECT id, source FROM documents WHERE 1 = 1`
	var args []any
	if owner, ok := requiredTerm(q, query.FieldOwner); ok {
		stmt += ` AND owner_id = ?`
		args = append(args, owner)
	}
	if appID, ok := requiredTerm(q, query.FieldID); ok {
		stmt += ` AND app_id = ?`
		args = append(args, appID)
	}
	stmt += ` ORDER BY rowid`

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan: %w", err)
	}
	defer rows.Close()

	var out []document
	for rows.Next() {
		var d document
		var raw string
		if err := rows.Scan(&d.id, &raw); err != nil {
			return nil, err
		}
		d.raw = json.RawMessage(raw)
		if err := json.Unmarshal(d.raw, &d.src); err != nil {
			return nil, fmt.Errorf("sqlite: decode %s: %w", d.id, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) write(ctx context.Context, tx *sql.Tx, id string, src map[string]any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("sqlite: encode %s: %w", id, err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE documents
		SET source = ?, app_id = ?, owner_id = ?, updated_at = ?
		WHERE id = ?
	`, string(data), str(src[query.FieldID]), str(src[query.FieldOwner]), s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: write %s: %w", id, err)
	}
	return nil
}

// requiredTerm finds a string term on field that every match must satisfy.
func requiredTerm(q *query.Query, field string) (string, bool) {
	if q == nil {
		return "", false
	}
	if q.Term != nil {
		if stripKeyword(q.Term.Field) == field {
			v, ok := q.Term.Value.(string)
			return v, ok
		}
		return "", false
	}
	if q.Bool == nil {
		return "", false
	}
	for _, list := range [][]query.Query{q.Bool.Must, q.Bool.Filter} {
		for i := range list {
			if v, ok := requiredTerm(&list[i], field); ok {
				return v, true
			}
		}
	}
	return "", false
}

func window(all []scored, from, size int) []scored {
	if from < 0 {
		from = 0
	}
	if from >= len(all) {
		return nil
	}
	end := len(all)
	if size >= 0 && from+size < end {
		end = from + size
	}
	return all[from:end]
}

// toMap round-trips v through JSON so struct tags decide the document shape.
func toMap(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("document must be a JSON object")
	}
	return m, nil
}

// merge applies patch onto dst. Nested objects merge recursively, anything
// else replaces.
func merge(dst, patch map[string]any) {
	for k, v := range patch {
		pm, pok := v.(map[string]any)
		dm, dok := dst[k].(map[string]any)
		if pok && dok {
			merge(dm, pm)
			continue
		}
		dst[k] = v
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
