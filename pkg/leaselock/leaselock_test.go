package leaselock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeLease struct {
	token   string
	expires time.Time
}

type fakeDB struct {
	mu    sync.Mutex
	locks map[string]fakeLease
}

func newFakeDB() *fakeDB {
	return &fakeDB{locks: make(map[string]fakeLease)}
}

type fakeRow struct {
	key string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.key
	return nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := args[0].(string)
	token := args[1].(string)
	expires := time.Now().Add(time.Duration(args[2].(int64)) * time.Millisecond)

	switch {
	case strings.Contains(sql, "INSERT INTO job_locks"):
		cur, held := f.locks[key]
		if !held || cur.expires.Before(time.Now()) || cur.token == token {
			f.locks[key] = fakeLease{token: token, expires: expires}
			return fakeRow{key: key}
		}
		return fakeRow{err: pgx.ErrNoRows}
	case strings.Contains(sql, "UPDATE job_locks"):
		if cur, held := f.locks[key]; held && cur.token == token {
			f.locks[key] = fakeLease{token: token, expires: expires}
			return fakeRow{key: key}
		}
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := args[0].(string)
	token := args[1].(string)
	if cur, held := f.locks[key]; held && cur.token == token {
		delete(f.locks, key)
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) steal(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locks[key] = fakeLease{token: "intruder", expires: time.Now().Add(time.Hour)}
}

func TestTryRun_SecondHolderIsRejected(t *testing.T) {
	db := newFakeDB()
	locker := &Locker{db: db, TTL: time.Minute}

	err := locker.TryRun(context.Background(), "tune", func(ctx context.Context) error {
		inner := locker.TryRun(ctx, "tune", func(ctx context.Context) error { return nil })
		if !errors.Is(inner, ErrBusy) {
			t.Fatalf("nested TryRun = %v, want ErrBusy", inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("TryRun failed: %v", err)
	}
}

func TestTryRun_ReleasesAfterReturn(t *testing.T) {
	db := newFakeDB()
	locker := &Locker{db: db, TTL: time.Minute}

	for i := 0; i < 2; i++ {
		err := locker.TryRun(context.Background(), "seed", func(ctx context.Context) error { return nil })
		if err != nil {
			t.Fatalf("TryRun run %d failed: %v", i, err)
		}
	}
}

func TestTryRun_StealsExpiredLease(t *testing.T) {
	db := newFakeDB()
	db.locks["feeds"] = fakeLease{token: "crashed-worker", expires: time.Now().Add(-time.Second)}
	locker := &Locker{db: db, TTL: time.Minute}

	ran := false
	err := locker.TryRun(context.Background(), "feeds", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("TryRun failed: %v", err)
	}
	if !ran {
		t.Fatal("job did not run after stealing the expired lease")
	}
}

func TestTryRun_LostLeaseCancelsJob(t *testing.T) {
	db := newFakeDB()
	locker := &Locker{db: db, TTL: 2 * time.Second}

	err := locker.TryRun(context.Background(), "tune", func(ctx context.Context) error {
		db.steal("tune")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("job context was never canceled")
		}
	})
	if !errors.Is(err, ErrLost) {
		t.Fatalf("TryRun = %v, want ErrLost", err)
	}
}

func TestTryRun_EmptyKey(t *testing.T) {
	locker := &Locker{db: newFakeDB(), TTL: time.Minute}
	err := locker.TryRun(context.Background(), "", func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error for empty key")
	}
}
