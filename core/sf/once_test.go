package sf

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOnce_Concurrent(t *testing.T) {
	var (
		once  Once[[]string]
		loads atomic.Int32
		start = make(chan struct{})
		wg    sync.WaitGroup
	)

	const n = 32
	results := make([][]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			v, err := once.Do(func() ([]string, error) {
				loads.Add(1)
				time.Sleep(20 * time.Millisecond)
				return []string{"a", "b"}, nil
			})
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	close(start)
	wg.Wait()

	require.EqualValues(t, 1, loads.Load())
	require.EqualValues(t, 1, once.Calls())
	for _, r := range results {
		require.Equal(t, []string{"a", "b"}, r)
	}
}

func TestOnce_ErrorRetries(t *testing.T) {
	var once Once[int]
	boom := errors.New("boom")

	_, err := once.Do(func() (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	require.False(t, once.Done())

	v, err := once.Do(func() (int, error) { return 7, nil })
	require.NoError(t, err)
	require.Equal(t, 7, v)
	require.True(t, once.Done())

	v, err = once.Do(func() (int, error) { return 8, nil })
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestOnce_Reset(t *testing.T) {
	var once Once[int]
	_, _ = once.Do(func() (int, error) { return 1, nil })
	once.Reset()
	require.False(t, once.Done())

	v, err := once.Do(func() (int, error) { return 2, nil })
	require.NoError(t, err)
	require.Equal(t, 2, v)
	require.EqualValues(t, 2, once.Calls())
}
