package collector

import (
	"sync"

	"github.com/fleetlink/cantel/j1939"
)

// readingQueue is the single shared structure between the frame callback
// (producer) and the flush loop (consumer). FIFO order equals frame arrival
// order. It is unbounded: persistent sink failures grow it, see DESIGN.md.
type readingQueue struct {
	mu   sync.Mutex
	data []j1939.Reading
}

func newReadingQueue() *readingQueue {
	return &readingQueue{}
}

func (q *readingQueue) Enqueue(readings ...j1939.Reading) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.data = append(q.data, readings...)
}

// DequeueBatch removes and returns up to max readings from the front.
func (q *readingQueue) DequeueBatch(max int) []j1939.Reading {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.data) == 0 {
		return nil
	}

	if max <= 0 || max > len(q.data) {
		max = len(q.data)
	}

	out := make([]j1939.Reading, max)
	copy(out, q.data[:max])
	q.data = append(q.data[:0], q.data[max:]...)

	return out
}

// RequeueFront puts a failed batch back at the head of the queue, keeping
// its original relative order. The next eligible flush retries the same
// readings first.
func (q *readingQueue) RequeueFront(batch []j1939.Reading) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.data = append(batch, q.data...)
}

func (q *readingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.data)
}
