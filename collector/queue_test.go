package collector

import (
	"fmt"
	"testing"

	"github.com/fleetlink/cantel/j1939"
	"github.com/stretchr/testify/assert"
)

func makeReadings(n int, prefix string) []j1939.Reading {
	readings := make([]j1939.Reading, n)
	for i := range readings {
		readings[i] = j1939.Reading{SignalName: fmt.Sprintf("%s_%d", prefix, i)}
	}
	return readings
}

func signalNames(readings []j1939.Reading) []string {
	names := make([]string, len(readings))
	for i, r := range readings {
		names[i] = r.SignalName
	}
	return names
}

func Test_readingQueue_FIFO(t *testing.T) {
	assert := assert.New(t)

	q := newReadingQueue()
	assert.Equal(0, q.Len())
	assert.Nil(q.DequeueBatch(10))

	q.Enqueue(makeReadings(5, "sig")...)
	assert.Equal(5, q.Len())

	batch := q.DequeueBatch(3)
	assert.Equal([]string{"sig_0", "sig_1", "sig_2"}, signalNames(batch))
	assert.Equal(2, q.Len())

	batch = q.DequeueBatch(10)
	assert.Equal([]string{"sig_3", "sig_4"}, signalNames(batch))
	assert.Equal(0, q.Len())
}

func Test_readingQueue_RequeueFront(t *testing.T) {
	assert := assert.New(t)

	q := newReadingQueue()
	q.Enqueue(makeReadings(6, "sig")...)

	batch := q.DequeueBatch(4)
	assert.Equal(2, q.Len())

	// A failed batch goes back to the head in original order, ahead of the
	// readings that stayed queued.
	q.RequeueFront(batch)
	assert.Equal(6, q.Len())

	retry := q.DequeueBatch(6)
	assert.Equal(
		[]string{"sig_0", "sig_1", "sig_2", "sig_3", "sig_4", "sig_5"},
		signalNames(retry),
	)
}
