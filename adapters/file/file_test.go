package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/rigcore-go/core/set"
	"github.com/codewandler/rigcore-go/internal/codec"
)

func TestSnapshot_ReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gpu-profiles.json")
	s := NewSnapshot(path, Options{})

	data, err := s.ReadAll(t.Context())
	require.NoError(t, err)
	require.Nil(t, data)

	require.NoError(t, s.WriteAll(t.Context(), []byte(`{"items":[]}`)))
	require.NoError(t, s.WriteAll(t.Context(), []byte(`{"items":[1]}`)))

	data, err = s.ReadAll(t.Context())
	require.NoError(t, err)
	require.Equal(t, `{"items":[1]}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not remain")
}

func TestSnapshot_FailedWriteIsNotRemembered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	// a directory in place of the file makes the final rename fail
	require.NoError(t, os.MkdirAll(filepath.Join(path, "occupied"), 0o755))
	s := NewSnapshot(path, Options{})

	data := []byte(`{"items":[]}`)
	require.Error(t, s.WriteAll(t.Context(), data))
	require.True(t, s.changed(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not remain")
}

func TestSnapshot_BacksSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.yaml")
	newSet := func() *set.Set[string, string] {
		return set.New(set.Options[string, string]{
			Name:      "names",
			KeyOf:     func(s string) string { return s },
			Persister: set.SnapshotPersister[string, string](NewSnapshot(path, Options{}), codec.YAMLCodec{}),
		})
	}

	s := newSet()
	_, err := s.Add(t.Context(), "alpha")
	require.NoError(t, err)
	_, err = s.Add(t.Context(), "beta")
	require.NoError(t, err)

	require.Equal(t, []string{"alpha", "beta"}, newSet().All(t.Context()))
}

func TestSnapshot_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	s := NewSnapshot(path, Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, s.WriteAll(t.Context(), []byte(`{"items":[]}`)))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func(ctx context.Context) {
			_, _ = s.ReadAll(ctx)
			changed <- struct{}{}
		})
	}()
	// let the watcher register
	time.Sleep(100 * time.Millisecond)

	// own writes are not reported
	require.NoError(t, s.WriteAll(t.Context(), []byte(`{"items":["own"]}`)))
	select {
	case <-changed:
		t.Fatal("own write reported as change")
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte(`{"items":["edited"]}`), 0o644))
	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("external edit not reported")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}
