// Package leaselock provides expiring, renewable locks stored in the
// app_locks table. Workers use them so that a snapshot is built by one
// process only, even when the broker redelivers its message.
package leaselock

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger"
)

var (
	ErrBusy = errors.New("lease lock busy")
	ErrLost = errors.New("lease lock lost")
)

const (
	defaultTTL          = 5 * time.Minute
	defaultPollInterval = 250 * time.Millisecond
	renewAttempts       = 3
	renewTimeout        = 15 * time.Second
)

// Conn is the subset of a pgx pool or connection the lock needs.
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Client struct {
	db Conn
}

// Options tune a single lease.
//
//   - TTL: how long the row stays valid without renewal, default 5m
//   - RenewEvery: renewal period, at most half the TTL
//   - Wait: poll until the key is free instead of failing with ErrBusy
//   - PollInterval, PollJitter: spacing of those polls
//   - Owner: readable prefix of the lock token, e.g. the worker host
type Options struct {
	TTL        time.Duration
	RenewEvery time.Duration

	Wait         bool
	PollInterval time.Duration
	PollJitter   time.Duration

	Owner string
}

func (o Options) normalized() Options {
	if o.TTL < time.Millisecond {
		o.TTL = defaultTTL
	}
	if o.RenewEvery <= 0 || o.RenewEvery >= o.TTL {
		o.RenewEvery = max(o.TTL/2, time.Second)
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	o.PollJitter = max(o.PollJitter, 0)
	return o
}

// Lease is a held lock. Context is canceled once the lease is released or
// a renewal fails, so work bound to it stops when ownership is lost.
type Lease struct {
	Key   string
	Token string

	Context context.Context

	client *Client
	ttlMs  int64
	cancel context.CancelCauseFunc

	stopOnce sync.Once
	stopped  chan struct{}
}

func New(pool *pgxpool.Pool) *Client {
	return NewWithConn(pool)
}

func NewWithConn(db Conn) *Client {
	return &Client{db: db}
}

// SnapshotKey names the lock guarding the build of one dataset graph at a
// given frequency threshold.
func SnapshotKey(datasetID string, minFrequency int) string {
	return fmt.Sprintf("snapshot:%s:%d", datasetID, minFrequency)
}

// WithLease runs fn while holding key and releases it afterwards. fn gets
// the lease context.
func (c *Client) WithLease(ctx context.Context, key string, opts Options, fn func(ctx context.Context) error) error {
	lease, err := c.Acquire(ctx, key, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			logger.Warn("[Lock] Release failed", "key", key, "err", err)
		}
	}()

	if err := fn(lease.Context); err != nil {
		return err
	}
	return lease.Err()
}

// Acquire takes key or returns ErrBusy. With opts.Wait it polls until the
// key is free or ctx ends.
func (c *Client) Acquire(ctx context.Context, key string, opts Options) (*Lease, error) {
	if key == "" {
		return nil, errors.New("lease lock key is empty")
	}
	opts = opts.normalized()

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	token := opts.Owner + id
	ttlMs := opts.TTL.Milliseconds()

	for {
		ok, err := c.tryAcquire(ctx, key, token, ttlMs)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if !opts.Wait {
			return nil, ErrBusy
		}
		if err := sleep(ctx, opts.PollInterval, opts.PollJitter); err != nil {
			return nil, err
		}
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	l := &Lease{
		Key:     key,
		Token:   token,
		Context: leaseCtx,
		client:  c,
		ttlMs:   ttlMs,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	go l.keepAlive(opts.RenewEvery)

	logger.Debug("[Lock] Acquired", "key", key, "ttl", opts.TTL)
	return l, nil
}

func (c *Client) tryAcquire(ctx context.Context, key, token string, ttlMs int64) (bool, error) {
	var got string
	err := c.db.QueryRow(ctx, tryAcquireSQL, key, token, ttlMs).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return got == key, nil
}

// Err is ErrLost once a renewal failed and nil while the lease is held or
// after a regular Release.
func (l *Lease) Err() error {
	if cause := context.Cause(l.Context); errors.Is(cause, ErrLost) {
		return cause
	}
	return nil
}

// Release stops renewal and deletes the row if it still belongs to this
// lease. Calling it more than once is safe.
func (l *Lease) Release(ctx context.Context) error {
	l.stopOnce.Do(func() {
		close(l.stopped)
		l.cancel(context.Canceled)
	})

	_, err := l.client.db.Exec(ctx, releaseSQL, l.Key, l.Token)
	return err
}

func (l *Lease) keepAlive(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-l.stopped:
			return
		case <-l.Context.Done():
			return
		case <-t.C:
			if err := l.renew(); err != nil {
				logger.Warn("[Lock] Lease lost", "key", l.Key, "err", err)
				l.cancel(fmt.Errorf("%w: %v", ErrLost, err))
				return
			}
		}
	}
}

// renew extends the row. A missing row means someone else took the key;
// other errors are retried a few times before giving up.
func (l *Lease) renew() error {
	var err error
	for attempt := 1; attempt <= renewAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(l.Context, renewTimeout)
		var got string
		err = l.client.db.QueryRow(ctx, renewSQL, l.Key, l.Token, l.ttlMs).Scan(&got)
		cancel()

		switch {
		case err == nil:
			return nil
		case errors.Is(err, pgx.ErrNoRows):
			return ErrLost
		case attempt < renewAttempts:
			if serr := sleep(l.Context, 200*time.Millisecond, 0); serr != nil {
				return serr
			}
		}
	}
	return err
}

func sleep(ctx context.Context, base, jitter time.Duration) error {
	d := base
	if jitter > 0 {
		d += rand.N(jitter + 1)
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
INSERT INTO app_locks (lock_key, locked_by, expires_at)
VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
ON CONFLICT (lock_key) DO UPDATE
SET locked_by  = EXCLUDED.locked_by,
    expires_at = EXCLUDED.expires_at
WHERE app_locks.expires_at < now()
   OR app_locks.locked_by = EXCLUDED.locked_by
RETURNING lock_key;
`

const renewSQL = `
UPDATE app_locks
SET expires_at = now() + ($3::bigint * interval '1 millisecond')
WHERE lock_key = $1 AND locked_by = $2
RETURNING lock_key;
`

const releaseSQL = `
DELETE FROM app_locks
WHERE lock_key = $1 AND locked_by = $2;
`
