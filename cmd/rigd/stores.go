package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/codewandler/rigcore-go/adapters/bbolt"
	"github.com/codewandler/rigcore-go/adapters/file"
	"github.com/codewandler/rigcore-go/adapters/nats"
	"github.com/codewandler/rigcore-go/adapters/sqlite"
	"github.com/codewandler/rigcore-go/core/app"
	"github.com/codewandler/rigcore-go/core/set"
	"github.com/codewandler/rigcore-go/domain/gpu"
	"github.com/codewandler/rigcore-go/domain/gpuname"
	"github.com/codewandler/rigcore-go/domain/kernel"
	"github.com/codewandler/rigcore-go/domain/user"
	"github.com/codewandler/rigcore-go/internal/codec"
	"github.com/codewandler/rigcore-go/ports/store"
)

type watcher interface {
	Watch(ctx context.Context, onChange func(ctx context.Context)) error
}

type watchedSnapshot interface {
	store.SnapshotStore
	watcher
}

// stores is the storage selected for a process.
type stores struct {
	Persisters app.Persisters
	// Watchers maps set names to the snapshot whose external changes should
	// reload the set.
	Watchers map[string]watcher
	close    []func() error
}

func (s *stores) Close() error {
	var errs []error
	for i := len(s.close) - 1; i >= 0; i-- {
		errs = append(errs, s.close[i]())
	}
	return errors.Join(errs...)
}

func openStores(ctx context.Context, cfg Config, log *slog.Logger) (*stores, error) {
	if cfg.Store != storeNATS {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	switch cfg.Store {
	case storeFile, storeYAML:
		c, err := codec.ByName(map[string]string{storeFile: "json", storeYAML: "yaml"}[cfg.Store])
		if err != nil {
			return nil, err
		}
		return snapshotStores(c, func(name string) watchedSnapshot {
			return file.NewSnapshot(
				filepath.Join(cfg.DataDir, name+"."+c.Ext()),
				file.Options{Debounce: cfg.Debounce, Log: log},
			)
		}), nil

	case storeNATS:
		kv, err := nats.NewKV(ctx, nats.KvConfig{
			Connect: nats.ConnectURL(cfg.NatsURL),
			Bucket:  cfg.NatsBucket,
			Log:     log,
		})
		if err != nil {
			return nil, fmt.Errorf("open nats kv: %w", err)
		}
		s := snapshotStores(codec.JSONCodec{}, func(name string) watchedSnapshot {
			return kv.Snapshot(name)
		})
		s.close = append(s.close, func() error { kv.Close(); return nil })
		return s, nil

	case storeBbolt:
		db, err := bbolt.Open(filepath.Join(cfg.DataDir, "rig.db"))
		if err != nil {
			return nil, err
		}
		var errs []error
		s := &stores{
			Persisters: app.Persisters{
				KernelInputs:   boltRecords[uuid.UUID, kernel.Input](db, kernel.InputSetName, nil, &errs),
				Kernels:        boltRecords[uuid.UUID, kernel.Kernel](db, kernel.KernelSetName, nil, &errs),
				Profiles:       boltRecords[gpu.ProfileKey, gpu.Profile](db, gpu.ProfileSetName, profileKey, &errs),
				CoinOverClocks: boltRecords[uuid.UUID, gpu.CoinOverClock](db, gpu.CoinOverClockSetName, nil, &errs),
				Users:          boltRecords[string, user.User](db, user.SetName, nil, &errs),
				GpuNames:       boltRecords[gpuname.Name, gpuname.Name](db, gpuname.SetName, gpuNameKey, &errs),
			},
			close: []func() error{db.Close},
		}
		if err := errors.Join(errs...); err != nil {
			_ = db.Close()
			return nil, err
		}
		return s, nil

	case storeSQLite:
		db, err := sqlite.Open(filepath.Join(cfg.DataDir, "rig.sqlite"))
		if err != nil {
			return nil, err
		}
		var errs []error
		s := &stores{
			Persisters: app.Persisters{
				KernelInputs:   sqlRecords[uuid.UUID, kernel.Input](db, kernel.InputSetName, nil, &errs),
				Kernels:        sqlRecords[uuid.UUID, kernel.Kernel](db, kernel.KernelSetName, nil, &errs),
				Profiles:       sqlRecords[gpu.ProfileKey, gpu.Profile](db, gpu.ProfileSetName, profileKey, &errs),
				CoinOverClocks: sqlRecords[uuid.UUID, gpu.CoinOverClock](db, gpu.CoinOverClockSetName, nil, &errs),
				Users:          sqlRecords[string, user.User](db, user.SetName, nil, &errs),
				GpuNames:       sqlRecords[gpuname.Name, gpuname.Name](db, gpuname.SetName, gpuNameKey, &errs),
			},
			close: []func() error{db.Close},
		}
		if err := errors.Join(errs...); err != nil {
			_ = db.Close()
			return nil, err
		}
		return s, nil
	}

	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

func snapshotStores(c codec.Codec, open func(name string) watchedSnapshot) *stores {
	s := &stores{Watchers: map[string]watcher{}}
	snapshot := func(name string) store.SnapshotStore {
		w := open(name)
		s.Watchers[name] = w
		return w
	}
	s.Persisters = app.Persisters{
		KernelInputs:   set.SnapshotPersister[uuid.UUID, kernel.Input](snapshot(kernel.InputSetName), c),
		Kernels:        set.SnapshotPersister[uuid.UUID, kernel.Kernel](snapshot(kernel.KernelSetName), c),
		Profiles:       set.SnapshotPersister[gpu.ProfileKey, gpu.Profile](snapshot(gpu.ProfileSetName), c),
		CoinOverClocks: set.SnapshotPersister[uuid.UUID, gpu.CoinOverClock](snapshot(gpu.CoinOverClockSetName), c),
		Users:          set.SnapshotPersister[string, user.User](snapshot(user.SetName), c),
		GpuNames:       set.SnapshotPersister[gpuname.Name, gpuname.Name](snapshot(gpuname.SetName), c),
	}
	return s
}

func boltRecords[K comparable, T any](db *bbolt.DB, name string, key func(K) string, errs *[]error) set.Persister[K, T] {
	r, err := bbolt.NewRecords[K, T](db, name, key)
	if err != nil {
		*errs = append(*errs, err)
		return nil
	}
	return set.RecordPersister[K, T](r)
}

func sqlRecords[K comparable, T any](db *sqlite.DB, name string, key func(K) string, errs *[]error) set.Persister[K, T] {
	r, err := sqlite.NewRecords[K, T](db, name, key)
	if err != nil {
		*errs = append(*errs, err)
		return nil
	}
	return set.RecordPersister[K, T](r)
}

func profileKey(k gpu.ProfileKey) string {
	return k.CoinID.String() + "/" + k.Slot.String()
}

func gpuNameKey(n gpuname.Name) string {
	return fmt.Sprintf("%s/%s/%d", n.Type, n.Name, n.TotalMemory)
}
