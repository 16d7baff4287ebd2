package set

import "sync"

// sequencer lets publications run one at a time in ticket order. Tickets are
// drawn while the set lock is held, so events leave in mutation order, but
// waiting for a turn never holds the set lock.
type sequencer struct {
	mu    sync.Mutex
	turn  *sync.Cond
	drawn uint64
	next  uint64
}

func newSequencer() *sequencer {
	q := &sequencer{}
	q.turn = sync.NewCond(&q.mu)
	return q
}

func (q *sequencer) draw() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	t := q.drawn
	q.drawn++
	return t
}

// run waits until ticket is next, runs fn and hands the turn on. Every drawn
// ticket must be run exactly once.
func (q *sequencer) run(ticket uint64, fn func()) {
	q.mu.Lock()
	for q.next != ticket {
		q.turn.Wait()
	}
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.next++
		q.mu.Unlock()
		q.turn.Broadcast()
	}()
	fn()
}
