package session

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// execRecorder is a database/sql connector that records every statement and
// answers it with a fixed affected-row count.
type execRecorder struct {
	mu      sync.Mutex
	rows    int64
	err     error
	queries []string
	args    [][]driver.NamedValue
}

func (r *execRecorder) Connect(context.Context) (driver.Conn, error) { return &recorderConn{r: r}, nil }
func (r *execRecorder) Driver() driver.Driver                         { return recorderDriver{r: r} }

func (r *execRecorder) last() (string, []driver.NamedValue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queries) == 0 {
		return "", nil
	}
	return r.queries[len(r.queries)-1], r.args[len(r.args)-1]
}

type recorderDriver struct{ r *execRecorder }

func (d recorderDriver) Open(string) (driver.Conn, error) { return &recorderConn{r: d.r}, nil }

type recorderConn struct{ r *execRecorder }

func (c *recorderConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}
func (c *recorderConn) Close() error              { return nil }
func (c *recorderConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions not supported") }

func (c *recorderConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	c.r.queries = append(c.r.queries, query)
	c.r.args = append(c.r.args, args)
	if c.r.err != nil {
		return nil, c.r.err
	}
	return driver.RowsAffected(c.r.rows), nil
}

func newRecordedStore(t *testing.T, rec *execRecorder) *PostgresStore {
	t.Helper()
	sqlDB := sql.OpenDB(rec)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	return NewPostgresStore(db)
}

func TestPostgresAcquireIsConditionalUpsert(t *testing.T) {
	rec := &execRecorder{rows: 1}
	store := newRecordedStore(t, rec)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	ok, err := store.Acquire(context.Background(), "s1", now, time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !ok {
		t.Fatalf("one affected row should accept the request")
	}

	query, args := rec.last()
	for _, want := range []string{
		`INSERT INTO "sessions"`,
		`ON CONFLICT ("id") DO UPDATE SET`,
		`WHERE "sessions"."last_request" <= $`,
	} {
		if !strings.Contains(query, want) {
			t.Fatalf("query missing %q:\n%s", want, query)
		}
	}

	cutoff := now.Add(-time.Second)
	found := false
	for _, a := range args {
		if ts, ok := a.Value.(time.Time); ok && ts.Equal(cutoff) {
			found = true
		}
	}
	if !found {
		t.Fatalf("cutoff %v not bound in %v", cutoff, args)
	}
}

func TestPostgresAcquireRejectsWhenNoRowChanged(t *testing.T) {
	rec := &execRecorder{rows: 0}
	store := newRecordedStore(t, rec)

	ok, err := store.Acquire(context.Background(), "s1", time.Now(), time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if ok {
		t.Fatalf("no affected row means the session is still throttled")
	}
}

func TestPostgresAcquireError(t *testing.T) {
	rec := &execRecorder{err: errors.New("connection reset")}
	store := newRecordedStore(t, rec)

	ok, err := store.Acquire(context.Background(), "s1", time.Now(), time.Second)
	if err == nil || ok {
		t.Fatalf("expected error, got ok=%v err=%v", ok, err)
	}
}

func TestPostgresPurgeBefore(t *testing.T) {
	rec := &execRecorder{rows: 3}
	store := newRecordedStore(t, rec)

	n, err := store.PurgeBefore(context.Background(), time.Now())
	if err != nil || n != 3 {
		t.Fatalf("purge: n=%d err=%v", n, err)
	}
	query, _ := rec.last()
	if !strings.HasPrefix(query, `DELETE FROM "sessions" WHERE last_request < $1`) {
		t.Fatalf("purge query: %s", query)
	}
}
