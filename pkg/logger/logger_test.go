package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "chatty", Output: "stdout"})
	require.Error(t, err)
}

func TestCollectorAggregatesRepeatedErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("valuation failed", String("cusip", "000000AA1"))
	}
	l.Error("valuation failed", String("cusip", "000000AA2"))

	snap := l.collector.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, 3, snap[0].Count)
	assert.Equal(t, "000000AA1", snap[0].Fields["cusip"])

	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "logs", pub.topic)
	assert.Len(t, pub.batches[0], 2)
}

func TestFieldKeyValues(t *testing.T) {
	k, v := Error(errors.New("boom")).GetKeyValue()
	assert.Equal(t, "error", k)
	assert.Equal(t, "boom", v)

	k, v = Date("month", time.Date(2020, 3, 31, 0, 0, 0, 0, time.UTC)).GetKeyValue()
	assert.Equal(t, "month", k)
	assert.Equal(t, "2020-03-31", v)

	_, v = Duration("took", 1500*time.Millisecond).GetKeyValue()
	assert.Equal(t, int64(1500), v)
}
