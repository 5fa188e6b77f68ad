package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aiarchives/aiarchives/pkg/model"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Dialect identifies the SQL engine behind SQL
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// rebind rewrites ? placeholders to $N for PostgreSQL
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeValue converts t to the column representation of the dialect
func (d Dialect) timeValue(t time.Time) any {
	if d == DialectSQLite {
		return t.UnixNano()
	}
	return t.UTC()
}

// sqlTime scans TIMESTAMPTZ (time.Time) and unix nanosecond INTEGER columns
type sqlTime struct {
	time.Time
}

func (x *sqlTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		x.Time = v.UTC()
	case int64:
		x.Time = time.Unix(0, v).UTC()
	case nil:
		x.Time = time.Time{}
	default:
		return goerr.New("unsupported time column type", goerr.V("value", src))
	}
	return nil
}

// PostgresConfig holds the PostgreSQL connection settings
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// DSN builds a postgres:// connection URL
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{c.SSLMode}}.Encode()
	}
	return u.String()
}

// SQL implements Repository on database/sql
type SQL struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ Repository = (*SQL)(nil)

// NewPostgres connects to PostgreSQL and verifies the connection
func NewPostgres(ctx context.Context, cfg PostgresConfig, opts ...Option) (*SQL, error) {
	c := newConfig(opts)

	db, err := sql.Open(DialectPostgres.driverName(), cfg.DSN())
	if err != nil {
		return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to open database",
			goerr.V("host", cfg.Host), goerr.V("database", cfg.Database))
	}
	db.SetMaxOpenConns(c.maxOpenConns)
	db.SetMaxIdleConns(c.maxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to connect to database",
			goerr.V("host", cfg.Host), goerr.V("database", cfg.Database))
	}

	return &SQL{db: db, dialect: DialectPostgres, now: c.now}, nil
}

// NewSQLite opens (or creates) the SQLite database file at path
func NewSQLite(ctx context.Context, path string, opts ...Option) (*SQL, error) {
	c := newConfig(opts)

	if path == "" {
		return nil, goerr.Wrap(model.ErrPersistence, "sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to create data directory", goerr.V("path", path))
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open(DialectSQLite.driverName(), dsn)
	if err != nil {
		return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to open database", goerr.V("path", path))
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to connect to database", goerr.V("path", path))
	}

	return &SQL{db: db, dialect: DialectSQLite, now: c.now}, nil
}

// Migrate applies the embedded schema. Statements are idempotent.
func (r *SQL) Migrate(ctx context.Context) error {
	schema, err := schemaFS.ReadFile("schema/" + string(r.dialect) + ".sql")
	if err != nil {
		return goerr.Wrap(err, "failed to read schema", goerr.V("dialect", r.dialect))
	}

	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to apply schema",
				goerr.V("dialect", r.dialect), goerr.V("statement", strings.TrimSpace(stmt)))
		}
	}

	return nil
}

const conversationColumns = "id, model, scraped_at, content_key, source_html_bytes, views, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*model.ConversationRecord, error) {
	var (
		rec       model.ConversationRecord
		scrapedAt sqlTime
		createdAt sqlTime
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Model,
		&scrapedAt,
		&rec.ContentKey,
		&rec.SourceHTMLBytes,
		&rec.Views,
		&createdAt,
	); err != nil {
		return nil, err
	}
	rec.ScrapedAt = scrapedAt.Time
	rec.CreatedAt = createdAt.Time
	return &rec, nil
}

func (r *SQL) CreateConversation(ctx context.Context, input *model.CreateConversationInput) (*model.ConversationRecord, error) {
	query := r.dialect.rebind(`INSERT INTO conversations (` + conversationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + conversationColumns)

	rec, err := scanConversation(r.db.QueryRowContext(ctx, query,
		model.NewConversationID().String(),
		input.Model,
		r.dialect.timeValue(input.ScrapedAt),
		input.ContentKey.String(),
		input.SourceHTMLBytes,
		input.Views,
		r.dialect.timeValue(r.now()),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(model.ErrEmptyResult, "failed to create conversation record - no rows returned",
				goerr.V("content_key", input.ContentKey))
		}
		return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to create conversation record",
			goerr.V("content_key", input.ContentKey))
	}

	return rec, nil
}

func (r *SQL) GetConversation(ctx context.Context, id model.ConversationID) (*model.ConversationRecord, error) {
	query := r.dialect.rebind(`SELECT ` + conversationColumns + ` FROM conversations WHERE id = ?`)

	rec, err := scanConversation(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(model.ErrNotFound, "conversation not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to get conversation record", goerr.V("id", id))
	}

	return rec, nil
}

func (r *SQL) ListConversations(ctx context.Context, limit, offset int) ([]*model.ConversationRecord, error) {
	query := r.dialect.rebind(`SELECT ` + conversationColumns + ` FROM conversations
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`)

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to list conversation records",
			goerr.V("limit", limit), goerr.V("offset", offset))
	}
	defer rows.Close()

	records := make([]*model.ConversationRecord, 0, limit)
	for rows.Next() {
		rec, err := scanConversation(rows)
		if err != nil {
			return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to scan conversation record")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to iterate conversation records")
	}

	return records, nil
}

func (r *SQL) IncrementViews(ctx context.Context, id model.ConversationID) (*model.ConversationRecord, error) {
	query := r.dialect.rebind(`UPDATE conversations SET views = views + 1 WHERE id = ?
		RETURNING ` + conversationColumns)

	rec, err := scanConversation(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(model.ErrNotFound, "conversation not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to increment views", goerr.V("id", id))
	}

	return rec, nil
}

func (r *SQL) Close() error {
	return r.db.Close()
}
