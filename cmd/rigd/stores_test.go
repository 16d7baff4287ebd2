package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/rigcore-go/core/app"
	"github.com/codewandler/rigcore-go/domain/gpu"
	"github.com/codewandler/rigcore-go/domain/gpuname"
	"github.com/codewandler/rigcore-go/domain/kernel"
	"github.com/codewandler/rigcore-go/domain/user"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("RIG_STORE", "sqlite")
	t.Setenv("RIG_LOG_LEVEL", "debug")
	t.Setenv("RIG_WATCH", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, storeSQLite, cfg.Store)
	require.Equal(t, slog.LevelDebug, cfg.LogLevel)
	require.False(t, cfg.Watch)
	require.Equal(t, ":2121", cfg.MetricsAddr)

	t.Setenv("RIG_STORE", "litedb")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestStores_RoundTrip(t *testing.T) {
	for _, kind := range []string{storeFile, storeYAML, storeBbolt, storeSQLite} {
		t.Run(kind, func(t *testing.T) {
			ctx := t.Context()
			cfg := Config{DataDir: filepath.Join(t.TempDir(), "data"), Store: kind}

			in := kernel.Input{ID: uuid.New(), Name: "gminer", Args: "-a eth"}
			p := gpu.Profile{CoinID: uuid.New(), Slot: gpu.Gpu(1), Values: gpu.Values{CoreClockDelta: 100}}
			n := gpuname.Name{Type: gpuname.TypeNvidia, Name: "RTX 3080", TotalMemory: 10 << 30}
			u, err := user.New("admin", "secret", "")
			require.NoError(t, err)

			st, err := openStores(ctx, cfg, slog.Default())
			require.NoError(t, err)
			root, err := app.New(app.Config{Persisters: st.Persisters})
			require.NoError(t, err)
			require.NoError(t, root.Init(ctx))

			require.NoError(t, root.Execute(ctx, kernel.AddInput{Input: in}))
			require.NoError(t, root.Execute(ctx, gpu.AddOrUpdateProfile{Profile: p}))
			require.NoError(t, root.Execute(ctx, user.AddUser{User: u}))
			require.NoError(t, root.GpuNames().Set(ctx, n))
			root.Close()
			require.NoError(t, st.Close())

			st, err = openStores(ctx, cfg, slog.Default())
			require.NoError(t, err)
			defer st.Close()
			root, err = app.New(app.Config{Persisters: st.Persisters})
			require.NoError(t, err)
			defer root.Close()
			require.NoError(t, root.Init(ctx))

			require.Equal(t, []kernel.Input{in}, root.Kernel().Inputs.All(ctx))
			require.Equal(t, p, root.Gpu().Profile(ctx, p.CoinID, gpu.Gpu(1)))
			require.True(t, root.Users().Authenticate(ctx, "admin", "secret"))
			require.Equal(t, []gpuname.Name{n}, root.GpuNames().All(ctx))
		})
	}
}

func TestStores_SnapshotFilesHaveWatchers(t *testing.T) {
	cfg := Config{DataDir: t.TempDir(), Store: storeYAML}
	st, err := openStores(t.Context(), cfg, slog.Default())
	require.NoError(t, err)
	defer st.Close()

	require.Len(t, st.Watchers, 6)
	require.Contains(t, st.Watchers, user.SetName)

	root, err := app.New(app.Config{Persisters: st.Persisters})
	require.NoError(t, err)
	defer root.Close()
	u, err := user.New("admin", "secret", "")
	require.NoError(t, err)
	require.NoError(t, root.Execute(t.Context(), user.AddUser{User: u}))

	_, err = os.Stat(filepath.Join(cfg.DataDir, user.SetName+".yaml"))
	require.NoError(t, err)
}
