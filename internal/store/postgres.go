package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS hazard_records (
	collection TEXT NOT NULL,
	position   INTEGER NOT NULL,
	body       JSONB NOT NULL,
	PRIMARY KEY (collection, position)
)`

// Postgres stores each record as a JSONB row keyed by (collection, position).
// Save deletes and reinserts the collection inside one transaction.
type Postgres struct {
	db *sqlx.DB
}

// OpenPostgres connects to dsn and creates the records table if missing.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(connectCtx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	p := NewPostgres(db)
	if err := p.EnsureSchema(ctx); err != nil {
		db.Close() //nolint:errcheck // schema error takes precedence
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the records table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create hazard_records: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, collection string) ([]json.RawMessage, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	var bodies []string
	query := `SELECT body::text FROM hazard_records WHERE collection = $1 ORDER BY position`
	if err := p.db.SelectContext(ctx, &bodies, query, collection); err != nil {
		return nil, fmt.Errorf("select %s: %w", collection, err)
	}
	records := make([]json.RawMessage, len(bodies))
	for i, b := range bodies {
		records[i] = json.RawMessage(b)
	}
	return records, nil
}

func (p *Postgres) Save(ctx context.Context, collection string, records []json.RawMessage) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM hazard_records WHERE collection = $1`, collection); err != nil {
		return fmt.Errorf("clear %s: %w", collection, err)
	}

	if len(records) > 0 {
		bodies := make([]string, len(records))
		for i, r := range records {
			bodies[i] = string(r)
		}
		insert := `INSERT INTO hazard_records (collection, position, body)
			SELECT $1, t.ord - 1, t.body
			FROM unnest($2::jsonb[]) WITH ORDINALITY AS t(body, ord)`
		if _, err := tx.ExecContext(ctx, insert, collection, pq.Array(bodies)); err != nil {
			return fmt.Errorf("insert %s: %w", collection, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", collection, err)
	}
	return nil
}

// CheckReadiness pings the database.
func (p *Postgres) CheckReadiness(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}
