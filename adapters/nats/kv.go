package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/codewandler/rigcore-go/ports/store"
)

const DefaultBucket = "rig_snapshots"

type KvConfig struct {
	Connect Connector
	// Bucket defaults to DefaultBucket.
	Bucket   string
	MaxBytes int64
	Log      *slog.Logger
}

// KV is a JetStream key-value bucket holding one snapshot document per key.
type KV struct {
	kv    jetstream.KeyValue
	log   *slog.Logger
	close closeFunc
}

func NewKV(ctx context.Context, cfg KvConfig) (*KV, error) {
	doConnect := cfg.Connect
	if doConnect == nil {
		doConnect = ConnectDefault()
	}
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 64 * 1024 * 1024
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	nc, release, err := doConnect()
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		release()
		return nil, err
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:   cfg.Bucket,
		Storage:  jetstream.FileStorage,
		MaxBytes: cfg.MaxBytes,
	})
	if err != nil {
		release()
		return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
	}

	return &KV{
		kv:    kv,
		log:   cfg.Log.With(slog.String("bucket", cfg.Bucket)),
		close: release,
	}, nil
}

// Close releases the connection lease.
func (k *KV) Close() { k.close() }

// Snapshot returns the snapshot store kept under key.
func (k *KV) Snapshot(key string) *SnapshotStore {
	return &SnapshotStore{kv: k.kv, key: key, log: k.log.With(slog.String("key", key))}
}

// SnapshotStore implements store.SnapshotStore on one key of a bucket.
type SnapshotStore struct {
	kv  jetstream.KeyValue
	key string
	log *slog.Logger

	mu      sync.Mutex
	written uint64
}

func (s *SnapshotStore) ReadAll(ctx context.Context) ([]byte, error) {
	e, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", s.key, err)
	}
	return e.Value(), nil
}

func (s *SnapshotStore) WriteAll(ctx context.Context, data []byte) error {
	// held across Put so the watcher sees the revision before its update
	s.mu.Lock()
	defer s.mu.Unlock()
	rev, err := s.kv.Put(ctx, s.key, data)
	if err != nil {
		return fmt.Errorf("put %s: %w", s.key, err)
	}
	s.written = rev
	return nil
}

// Watch calls onChange for every revision of the key that this store did
// not write itself, until ctx is done.
func (s *SnapshotStore) Watch(ctx context.Context, onChange func(ctx context.Context)) error {
	w, err := s.kv.Watch(ctx, s.key, jetstream.UpdatesOnly())
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.key, err)
	}
	go func() {
		defer func() { _ = w.Stop() }()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Updates():
				if !ok {
					return
				}
				if e == nil {
					continue
				}
				s.mu.Lock()
				own := e.Revision() == s.written
				s.mu.Unlock()
				if own {
					continue
				}
				s.log.Debug("snapshot changed remotely", slog.Uint64("revision", e.Revision()))
				onChange(ctx)
			}
		}
	}()
	return nil
}

var _ store.SnapshotStore = (*SnapshotStore)(nil)
