package nats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/rigcore-go/core/set"
	"github.com/codewandler/rigcore-go/internal/codec"
)

type fruit struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestKV_Snapshot(t *testing.T) {
	connect := NewTestContainer(t)
	kv, err := NewKV(t.Context(), KvConfig{Bucket: "fruits", Connect: connect})
	require.NoError(t, err)
	t.Cleanup(kv.Close)

	s := kv.Snapshot("basket")
	data, err := s.ReadAll(t.Context())
	require.NoError(t, err)
	require.Nil(t, data)

	fruits := set.New(set.Options[string, fruit]{
		Name:      "fruits",
		KeyOf:     func(f fruit) string { return f.Name },
		Persister: set.SnapshotPersister[string, fruit](s, codec.JSONCodec{}),
	})
	_, err = fruits.Add(t.Context(), fruit{Name: "apple", Count: 10})
	require.NoError(t, err)

	reloaded := set.New(set.Options[string, fruit]{
		Name:      "fruits",
		KeyOf:     func(f fruit) string { return f.Name },
		Persister: set.SnapshotPersister[string, fruit](kv.Snapshot("basket"), codec.JSONCodec{}),
	})
	require.Equal(t, []fruit{{Name: "apple", Count: 10}}, reloaded.All(t.Context()))
}

func TestKV_WatchSkipsOwnWrites(t *testing.T) {
	connect := ReuseConnection(NewTestContainer(t))
	kv, err := NewKV(t.Context(), KvConfig{Bucket: "watched", Connect: connect})
	require.NoError(t, err)
	t.Cleanup(kv.Close)

	local, remote := kv.Snapshot("doc"), kv.Snapshot("doc")
	changed := make(chan struct{}, 4)
	require.NoError(t, local.Watch(t.Context(), func(context.Context) { changed <- struct{}{} }))

	require.NoError(t, local.WriteAll(t.Context(), []byte(`{"items":[]}`)))
	require.NoError(t, remote.WriteAll(t.Context(), []byte(`{"items":[1]}`)))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
	select {
	case <-changed:
		t.Fatal("own write was reported")
	case <-time.After(300 * time.Millisecond):
	}
}
