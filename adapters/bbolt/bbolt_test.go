package bbolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/rigcore-go/core/set"
	"github.com/codewandler/rigcore-go/ports/store"
)

type account struct {
	Login   string `json:"login"`
	Enabled bool   `json:"enabled"`
}

func openRecords(t *testing.T, path string) (*DB, *Records[string, account]) {
	t.Helper()
	db, err := Open(path)
	require.NoError(t, err)
	r, err := NewRecords[string, account](db, "users", nil)
	require.NoError(t, err)
	return db, r
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rig.db")
	db, r := openRecords(t, path)
	ctx := t.Context()

	require.ErrorIs(t, r.Update(ctx, "zed", account{Login: "zed"}), store.ErrNotFound)

	// insertion order, not key order
	require.NoError(t, r.Insert(ctx, "zed", account{Login: "zed"}))
	require.NoError(t, r.Insert(ctx, "amy", account{Login: "amy"}))
	require.NoError(t, r.Insert(ctx, "kim", account{Login: "kim"}))
	require.NoError(t, r.Update(ctx, "zed", account{Login: "zed", Enabled: true}))
	require.NoError(t, r.Delete(ctx, "kim"))
	require.NoError(t, r.Delete(ctx, "nobody"))

	all, err := r.FindAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []account{{Login: "zed", Enabled: true}, {Login: "amy"}}, all)
	require.NoError(t, db.Close())

	db, r = openRecords(t, path)
	defer db.Close()
	all, err = r.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestRecords_BackSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rig.db")
	db, r := openRecords(t, path)
	defer db.Close()

	s := set.New(set.Options[string, account]{
		Name:      "users",
		KeyOf:     func(a account) string { return a.Login },
		Persister: set.RecordPersister[string, account](r),
	})
	_, err := s.Add(t.Context(), account{Login: "admin"})
	require.NoError(t, err)
	_, err = s.Update(t.Context(), account{Login: "admin", Enabled: true})
	require.NoError(t, err)

	stored, err := r.FindAll(t.Context())
	require.NoError(t, err)
	require.Equal(t, s.All(t.Context()), stored)
}
