// Package source reads raw content units from the application's relational database.
package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/omnisearch/internal/domain"
	domsrc "github.com/kailas-cloud/omnisearch/internal/domain/source"
)

// DriverName is the database/sql driver used for source databases.
const DriverName = "sqlite"

// Source tables.
const (
	tableUsers   = "users"
	tableFiles   = "stored_files"
	tableStreams = "streams"
	tablePosts   = "posts"
)

// timestamps may arrive as driver time values (rendered RFC3339Nano) or as stored text
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Reader loads content rows. A missing table is reported as domain.ErrSourceMissing.
type Reader struct {
	db *sql.DB
}

// Open connects to the source database at dsn.
func Open(ctx context.Context, dsn string) (*Reader, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping source db: %w", err)
	}
	return &Reader{db: db}, nil
}

// NewReader wraps an existing connection.
func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// Close releases the connection.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Users returns every user with an email.
func (r *Reader) Users(ctx context.Context) ([]domsrc.User, error) {
	rows, err := r.query(ctx, tableUsers, `
		SELECT id, username, email, bio, created_at
		FROM users
		WHERE email IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domsrc.User
	for rows.Next() {
		var (
			u                        domsrc.User
			username, email, bio, ts sql.NullString
		)
		if err := rows.Scan(&u.ID, &username, &email, &bio, &ts); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Username, u.Email, u.Bio = username.String, email.String, bio.String
		u.CreatedAt = parseTime(ts)
		out = append(out, u)
	}
	return out, rowsErr(rows, tableUsers)
}

// Files returns every stored file with a filename.
func (r *Reader) Files(ctx context.Context) ([]domsrc.File, error) {
	rows, err := r.query(ctx, tableFiles, `
		SELECT id, filename, description, file_type, file_size, user_id, created_at, metadata
		FROM stored_files
		WHERE filename IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domsrc.File
	for rows.Next() {
		var (
			f                                    domsrc.File
			desc, fileType, userID, ts, metadata sql.NullString
			size                                 sql.NullInt64
		)
		if err := rows.Scan(&f.ID, &f.Filename, &desc, &fileType, &size, &userID, &ts, &metadata); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.Description, f.FileType, f.UserID = desc.String, fileType.String, userID.String
		f.FileSize = size.Int64
		f.CreatedAt = parseTime(ts)
		f.Metadata = parseMetadata(metadata)
		out = append(out, f)
	}
	return out, rowsErr(rows, tableFiles)
}

// Streams returns every stream with a title.
func (r *Reader) Streams(ctx context.Context) ([]domsrc.Stream, error) {
	rows, err := r.query(ctx, tableStreams, `
		SELECT id, title, description, status, user_id, created_at, metadata
		FROM streams
		WHERE title IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domsrc.Stream
	for rows.Next() {
		var (
			s                                  domsrc.Stream
			desc, status, userID, ts, metadata sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Title, &desc, &status, &userID, &ts, &metadata); err != nil {
			return nil, fmt.Errorf("scan stream: %w", err)
		}
		s.Description, s.Status, s.UserID = desc.String, status.String, userID.String
		s.CreatedAt = parseTime(ts)
		s.Metadata = parseMetadata(metadata)
		out = append(out, s)
	}
	return out, rowsErr(rows, tableStreams)
}

// Posts returns every post with a title.
func (r *Reader) Posts(ctx context.Context) ([]domsrc.Post, error) {
	rows, err := r.query(ctx, tablePosts, `
		SELECT id, title, content, status, user_id, created_at, tags
		FROM posts
		WHERE title IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domsrc.Post
	for rows.Next() {
		var (
			p                                 domsrc.Post
			content, status, userID, ts, tags sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Title, &content, &status, &userID, &ts, &tags); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.Content, p.Status, p.UserID = content.String, status.String, userID.String
		p.CreatedAt = parseTime(ts)
		p.Tags = parseTags(tags)
		out = append(out, p)
	}
	return out, rowsErr(rows, tablePosts)
}

// query checks the table exists before running stmt.
func (r *Reader) query(ctx context.Context, table, stmt string) (*sql.Rows, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("check table %s: %w", table, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("table %s: %w", table, domain.ErrSourceMissing)
	}

	rows, err := r.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	return rows, nil
}

func rowsErr(rows *sql.Rows, table string) error {
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", table, err)
	}
	return nil
}

func parseTime(v sql.NullString) time.Time {
	if !v.Valid || v.String == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v.String); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// parseMetadata flattens a JSON object column to strings. Non-object values are ignored.
func parseMetadata(v sql.NullString) map[string]string {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(v.String), &raw); err != nil {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, val := range raw {
		switch x := val.(type) {
		case nil:
		case string:
			out[k] = x
		default:
			b, err := json.Marshal(x)
			if err == nil {
				out[k] = string(b)
			}
		}
	}
	return out
}

// parseTags accepts a JSON array or a comma-separated list.
func parseTags(v sql.NullString) []string {
	if !v.Valid {
		return nil
	}
	s := strings.TrimSpace(v.String)
	if s == "" {
		return nil
	}
	var tags []string
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &tags); err == nil {
			return tags
		}
	}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
