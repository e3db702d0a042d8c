package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshot is the persisted form of a session: the emitted text plus
// bookkeeping. Section IDs are not persisted; a restored session gets a new
// arena.
type Snapshot struct {
	ID        string    `json:"doc_id"`
	Filename  string    `json:"filename,omitempty"`
	Text      string    `json:"text"`
	Revision  int       `json:"revision"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SnapshotStore persists session snapshots.
type SnapshotStore interface {
	Save(ctx context.Context, snap Snapshot, ttl time.Duration) error
	Load(ctx context.Context, id string) (Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// RedisSnapshots stores snapshots and verification reports in Redis.
type RedisSnapshots struct {
	client *redis.Client
	prefix string
}

// NewRedisSnapshots connects to redisURL and checks the connection.
func NewRedisSnapshots(ctx context.Context, redisURL string) (*RedisSnapshots, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisSnapshotsWithClient(client), nil
}

// NewRedisSnapshotsWithClient wraps an existing client.
func NewRedisSnapshotsWithClient(client *redis.Client) *RedisSnapshots {
	return &RedisSnapshots{client: client, prefix: "orgtree:"}
}

func (r *RedisSnapshots) docKey(id string) string    { return r.prefix + "doc:" + id }
func (r *RedisSnapshots) reportKey(id string) string { return r.prefix + "report:" + id }

func (r *RedisSnapshots) Save(ctx context.Context, snap Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.docKey(snap.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.ID, err)
	}
	return nil
}

func (r *RedisSnapshots) Load(ctx context.Context, id string) (Snapshot, error) {
	data, err := r.client.Get(ctx, r.docKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot %s: %w", id, err)
	}
	return snap, nil
}

func (r *RedisSnapshots) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, r.docKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveReport stores an opaque verification report under a job ID.
func (r *RedisSnapshots) SaveReport(ctx context.Context, jobID string, report []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.reportKey(jobID), report, ttl).Err(); err != nil {
		return fmt.Errorf("save report %s: %w", jobID, err)
	}
	return nil
}

// LoadReport returns a stored report or ErrNotFound.
func (r *RedisSnapshots) LoadReport(ctx context.Context, jobID string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.reportKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", jobID, err)
	}
	return data, nil
}

func (r *RedisSnapshots) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisSnapshots) Close() error {
	return r.client.Close()
}
