package scans

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/MikeSquared-Agency/Intake/internal/store"
)

// Counter records QR code scans.
type Counter interface {
	Increment(ctx context.Context, code string) (int64, error)
	Count(ctx context.Context, code string) (int64, error)
	LastScannedAt(ctx context.Context, code string) (*time.Time, error)
}

const keyPrefix = "intake:qr:"

func countKey(code string) string { return keyPrefix + code + ":scans" }
func lastKey(code string) string  { return keyPrefix + code + ":last_scanned_at" }

// RedisCounter keeps scan counts in redis so the hot path never touches postgres.
type RedisCounter struct {
	c   *redis.Client
	now func() time.Time
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisCounter(c *redis.Client) *RedisCounter {
	return &RedisCounter{c: c, now: time.Now}
}

func (r *RedisCounter) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

func (r *RedisCounter) Increment(ctx context.Context, code string) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, countKey(code))
		p.Set(ctx, lastKey(code), r.now().UTC().Unix(), 0)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (r *RedisCounter) Count(ctx context.Context, code string) (int64, error) {
	v, err := r.c.Get(ctx, countKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

// LastScannedAt returns the time of the most recent scan, or nil if never scanned.
func (r *RedisCounter) LastScannedAt(ctx context.Context, code string) (*time.Time, error) {
	v, err := r.c.Get(ctx, lastKey(code)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t := time.Unix(v, 0).UTC()
	return &t, nil
}

// ScanRecorder is the slice of the store the fallback counter needs.
type ScanRecorder interface {
	IncrementQRScan(ctx context.Context, code string, at time.Time) (int64, error)
	GetQRCode(ctx context.Context, code string) (*store.QRCode, error)
}

// StoreCounter persists scans on the QR code row. Used when redis is not configured.
type StoreCounter struct {
	store ScanRecorder
	now   func() time.Time
}

func NewStoreCounter(s ScanRecorder) *StoreCounter {
	return &StoreCounter{store: s, now: time.Now}
}

func (s *StoreCounter) Increment(ctx context.Context, code string) (int64, error) {
	return s.store.IncrementQRScan(ctx, code, s.now().UTC())
}

func (s *StoreCounter) Count(ctx context.Context, code string) (int64, error) {
	qr, err := s.store.GetQRCode(ctx, code)
	if err != nil || qr == nil {
		return 0, err
	}
	return qr.ScanCount, nil
}

func (s *StoreCounter) LastScannedAt(ctx context.Context, code string) (*time.Time, error) {
	qr, err := s.store.GetQRCode(ctx, code)
	if err != nil || qr == nil {
		return nil, err
	}
	return qr.LastScannedAt, nil
}
