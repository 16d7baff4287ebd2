package set

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSequencer_RunsInTicketOrder(t *testing.T) {
	q := newSequencer()
	tickets := make([]uint64, 10)
	for i := range tickets {
		tickets[i] = q.draw()
	}

	var (
		mu  sync.Mutex
		ran []uint64
		wg  sync.WaitGroup
	)
	for i := len(tickets) - 1; i >= 0; i-- {
		wg.Add(1)
		go func(ticket uint64) {
			defer wg.Done()
			q.run(ticket, func() {
				mu.Lock()
				ran = append(ran, ticket)
				mu.Unlock()
			})
		}(tickets[i])
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("tickets were not run")
	}
	require.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, ran)
}
