// Package leaselock coordinates singleton background jobs across worker
// replicas with a Postgres-backed expiring lease. The holder renews the
// lease in the background; if renewal fails the job context is canceled so
// the work stops before another replica can take over.
package leaselock

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	// ErrBusy is returned by TryRun when another holder owns the lease.
	ErrBusy = errors.New("lease held by another worker")
	// ErrLost cancels the job context when a renewal finds the lease gone.
	ErrLost = errors.New("lease lost")
)

const (
	defaultTTL          = 5 * time.Minute
	defaultWaitInterval = 250 * time.Millisecond
	renewTimeout        = 15 * time.Second
	renewAttempts       = 3
)

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Locker hands out named leases backed by the job_locks table.
type Locker struct {
	db dbConn

	// TTL is how long an unrenewed lease survives. Renewal runs at TTL/2.
	TTL time.Duration
}

func New(pool *pgxpool.Pool) *Locker {
	return &Locker{db: pool, TTL: defaultTTL}
}

// TryRun runs fn under the lease for key if it is free, and returns ErrBusy
// without running fn otherwise. The context passed to fn is canceled with
// ErrLost when the lease cannot be renewed.
func (l *Locker) TryRun(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return l.run(ctx, key, false, fn)
}

// Run is TryRun except it polls until the lease frees up or ctx is done.
func (l *Locker) Run(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return l.run(ctx, key, true, fn)
}

func (l *Locker) run(ctx context.Context, key string, wait bool, fn func(ctx context.Context) error) error {
	if key == "" {
		return errors.New("lease key is empty")
	}

	token, err := gonanoid.New()
	if err != nil {
		return err
	}

	ttl := l.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	for {
		ok, err := l.tryAcquire(ctx, key, token, ttl)
		if err != nil {
			return err
		}
		if ok {
			break
		}
		if !wait {
			return ErrBusy
		}
		if err := sleepWithJitter(ctx, defaultWaitInterval, defaultWaitInterval/2); err != nil {
			return err
		}
	}

	jobCtx, cancel := context.WithCancelCause(ctx)
	stopRenew := make(chan struct{})
	renewDone := make(chan struct{})

	go func() {
		defer close(renewDone)
		l.renewLoop(jobCtx, cancel, stopRenew, key, token, ttl)
	}()

	fnErr := fn(jobCtx)

	close(stopRenew)
	<-renewDone
	cancel(context.Canceled)

	// Best effort: an expired lease disappears on its own.
	_, _ = l.db.Exec(context.Background(), releaseSQL, key, token)

	if fnErr != nil {
		return fnErr
	}
	if cause := context.Cause(jobCtx); errors.Is(cause, ErrLost) {
		return ErrLost
	}
	return nil
}

func (l *Locker) tryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	var returnedKey string
	err := l.db.QueryRow(ctx, tryAcquireSQL, key, token, ttl.Milliseconds()).Scan(&returnedKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return returnedKey == key, nil
}

func (l *Locker) renewLoop(ctx context.Context, cancel context.CancelCauseFunc, stop <-chan struct{}, key, token string, ttl time.Duration) {
	interval := max(ttl/2, time.Second)
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			if err := l.renewOnce(ctx, key, token, ttl); err != nil {
				cancel(err)
				return
			}
		}
	}
}

func (l *Locker) renewOnce(ctx context.Context, key, token string, ttl time.Duration) error {
	for attempt := range renewAttempts {
		renewCtx, cancel := context.WithTimeout(ctx, renewTimeout)
		var returnedKey string
		err := l.db.QueryRow(renewCtx, renewSQL, key, token, ttl.Milliseconds()).Scan(&returnedKey)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrLost
		}
		if attempt == renewAttempts-1 {
			return err
		}
		if err := sleepWithJitter(ctx, 200*time.Millisecond, 0); err != nil {
			return err
		}
	}
	return ErrLost
}

func sleepWithJitter(ctx context.Context, base, jitter time.Duration) error {
	d := base
	if jitter > 0 {
		d += time.Duration(rand.Int64N(int64(jitter) + 1))
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const tryAcquireSQL = `
INSERT INTO job_locks (lock_key, locked_by, expires_at)
VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
ON CONFLICT (lock_key) DO UPDATE
SET locked_by  = EXCLUDED.locked_by,
    expires_at = EXCLUDED.expires_at
WHERE job_locks.expires_at < now()
   OR job_locks.locked_by = EXCLUDED.locked_by
RETURNING lock_key;
`

const renewSQL = `
UPDATE job_locks
SET expires_at = now() + ($3::bigint * interval '1 millisecond')
WHERE lock_key = $1 AND locked_by = $2
RETURNING lock_key;
`

const releaseSQL = `
DELETE FROM job_locks
WHERE lock_key = $1 AND locked_by = $2;
`
