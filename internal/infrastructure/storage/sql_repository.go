package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"ResearchDigest/internal/config"
	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/infrastructure/storage/migrations"
	"ResearchDigest/internal/ports"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	configurationsTable = "configurations"
)

var configurationColumns = []string{
	"id", "frequency", "time_range", "topic", "additional_topics", "channel", "created_at",
}

// SQLRepository persists configurations in a single SQL table.
type SQLRepository struct {
	db      *sql.DB
	dialect string
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.ConfigurationStore = (*SQLRepository)(nil)

// Open connects to the configured database and applies pending migrations.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*SQLRepository, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverSQLite
	}

	dsn := cfg.DSN
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = "research_bot.db"
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("%w: postgres driver requires a dsn", domain.ErrPersistence)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported driver %q", domain.ErrPersistence, cfg.Driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", domain.ErrPersistence, err)
	}

	repo := NewSQLRepository(db, driver)
	if err := repo.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return repo, nil
}

// NewSQLRepository wires an already opened sql.DB.
func NewSQLRepository(db *sql.DB, dialect string) *SQLRepository {
	var placeholder sq.PlaceholderFormat = sq.Question
	if dialect == DriverPostgres {
		placeholder = sq.Dollar
	}
	return &SQLRepository{
		db:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:     time.Now,
	}
}

// Close releases the connection pool.
func (r *SQLRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Create inserts a new row and returns its identifier.
func (r *SQLRepository) Create(ctx context.Context, cfg domain.Configuration) (int64, error) {
	topics, err := encodeTopics(cfg.AdditionalTopics)
	if err != nil {
		return 0, err
	}

	createdAt := cfg.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	query, args, err := r.builder.
		Insert(configurationsTable).
		Columns("frequency", "time_range", "topic", "additional_topics", "channel", "created_at").
		Values(string(cfg.Cadence), string(cfg.Lookback), cfg.Topic, topics, cfg.Channel, createdAt.UTC()).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: build insert: %v", domain.ErrPersistence, err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("%w: insert configuration: %v", domain.ErrPersistence, err)
	}

	return id, nil
}

// Get loads a single configuration.
func (r *SQLRepository) Get(ctx context.Context, id int64) (domain.Configuration, error) {
	query, args, err := r.builder.
		Select(configurationColumns...).
		From(configurationsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Configuration{}, fmt.Errorf("%w: build select: %v", domain.ErrPersistence, err)
	}

	cfg, err := scanConfiguration(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Configuration{}, fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Configuration{}, err
	}

	return cfg, nil
}

// List returns every configuration in insertion order.
func (r *SQLRepository) List(ctx context.Context) ([]domain.Configuration, error) {
	query, args, err := r.builder.
		Select(configurationColumns...).
		From(configurationsTable).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: build select: %v", domain.ErrPersistence, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query configurations: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var result []domain.Configuration
	for rows.Next() {
		cfg, err := scanConfiguration(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows iteration: %v", domain.ErrPersistence, err)
	}

	return result, nil
}

// Update replaces all mutable fields of an existing row.
func (r *SQLRepository) Update(ctx context.Context, id int64, cfg domain.Configuration) error {
	topics, err := encodeTopics(cfg.AdditionalTopics)
	if err != nil {
		return err
	}

	query, args, err := r.builder.
		Update(configurationsTable).
		Set("frequency", string(cfg.Cadence)).
		Set("time_range", string(cfg.Lookback)).
		Set("topic", cfg.Topic).
		Set("additional_topics", topics).
		Set("channel", cfg.Channel).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: build update: %v", domain.ErrPersistence, err)
	}

	return r.execAffecting(ctx, id, query, args)
}

// Delete removes a row.
func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := r.builder.
		Delete(configurationsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: build delete: %v", domain.ErrPersistence, err)
	}

	return r.execAffecting(ctx, id, query, args)
}

func (r *SQLRepository) execAffecting(ctx context.Context, id int64, query string, args []any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: exec: %v", domain.ErrPersistence, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", domain.ErrPersistence, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}

	return nil
}

// migrate applies every embedded *.up.sql newer than the recorded version.
func (r *SQLRepository) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`)
	if err != nil {
		return fmt.Errorf("%w: create schema_migrations: %v", domain.ErrPersistence, err)
	}

	var current int
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("%w: read schema version: %v", domain.ErrPersistence, err)
	}

	entries, err := fs.ReadDir(migrations.FS, r.dialect)
	if err != nil {
		return fmt.Errorf("%w: read migrations: %v", domain.ErrPersistence, err)
	}

	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}

		content, err := fs.ReadFile(migrations.FS, path.Join(r.dialect, name))
		if err != nil {
			return fmt.Errorf("%w: read migration %s: %v", domain.ErrPersistence, name, err)
		}

		insert, args, err := r.builder.Insert("schema_migrations").Columns("version").Values(version).ToSql()
		if err != nil {
			return fmt.Errorf("%w: build migration record: %v", domain.ErrPersistence, err)
		}

		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: begin migration %s: %v", domain.ErrPersistence, name, err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: apply migration %s: %v", domain.ErrPersistence, name, err)
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: record migration %s: %v", domain.ErrPersistence, name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: commit migration %s: %v", domain.ErrPersistence, name, err)
		}
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfiguration(row rowScanner) (domain.Configuration, error) {
	var (
		cfg       domain.Configuration
		cadence   string
		lookback  string
		topics    string
		createdAt any
	)

	err := row.Scan(&cfg.ID, &cadence, &lookback, &cfg.Topic, &topics, &cfg.Channel, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return cfg, err
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: scan configuration: %v", domain.ErrPersistence, err)
	}

	cfg.Cadence = domain.Cadence(cadence)
	cfg.Lookback = domain.Lookback(lookback)
	cfg.CreatedAt = parseTimestamp(createdAt)

	if topics != "" {
		if err := json.Unmarshal([]byte(topics), &cfg.AdditionalTopics); err != nil {
			return cfg, fmt.Errorf("%w: decode additional topics of %d: %v", domain.ErrPersistence, cfg.ID, err)
		}
	}

	return cfg, nil
}

func encodeTopics(topics []string) (string, error) {
	if topics == nil {
		topics = []string{}
	}
	raw, err := json.Marshal(topics)
	if err != nil {
		return "", fmt.Errorf("%w: encode additional topics: %v", domain.ErrPersistence, err)
	}
	return string(raw), nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts whatever the driver hands back for created_at.
func parseTimestamp(value any) time.Time {
	var text string
	switch v := value.(type) {
	case time.Time:
		return v.UTC()
	case int64:
		return time.Unix(v, 0).UTC()
	case []byte:
		text = string(v)
	case string:
		text = v
	default:
		return time.Time{}
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
