// Package testutils provides hand-rolled fakes for the Stream
// Processor's interfaces, in place of a live Kafka/Postgres/Redis stack.
package testutils

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/stock-watchlist/pkg/models"
	"github.com/shubham-shewale/stock-watchlist/pkg/store"
)

// MockBusReader replays a fixed slice of messages, then blocks until ctx
// is cancelled to simulate an idle topic.
type MockBusReader struct {
	Messages []kafka.Message
	Index    int
	Mu       sync.Mutex

	Committed []kafka.Message
	Closed    bool
}

func (m *MockBusReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	m.Mu.Lock()
	if m.Index < len(m.Messages) {
		msg := m.Messages[m.Index]
		m.Index++
		m.Mu.Unlock()
		return msg, nil
	}
	m.Mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *MockBusReader) Commit(ctx context.Context, msgs ...kafka.Message) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Committed = append(m.Committed, msgs...)
	return nil
}

func (m *MockBusReader) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	return nil
}

// MockTradeSink records every batch it's asked to insert, resolving a
// deterministic incrementing symbol_id per distinct ticker.
type MockTradeSink struct {
	Mu       sync.Mutex
	symbols  map[string]int64
	nextID   int64
	Inserted []store.PreparedTrade

	FailNext bool
	FailAll  bool
}

func NewMockTradeSink() *MockTradeSink {
	return &MockTradeSink{symbols: make(map[string]int64)}
}

func (m *MockTradeSink) Prepare(ctx context.Context, t models.Trade, isLate bool) (store.PreparedTrade, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	id, ok := m.symbols[t.Symbol]
	if !ok {
		m.nextID++
		id = m.nextID
		m.symbols[t.Symbol] = id
	}
	return store.PreparedTrade{SymbolID: id, Trade: t, Late: isLate}, nil
}

func (m *MockTradeSink) InsertBatch(ctx context.Context, rows []store.PreparedTrade) (int, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.FailAll || m.FailNext {
		m.FailNext = false
		return 0, errInsertFailed
	}
	m.Inserted = append(m.Inserted, rows...)
	return len(rows), nil
}

// MockBarSink mirrors MockTradeSink for bars.
type MockBarSink struct {
	Mu       sync.Mutex
	symbols  map[string]int64
	nextID   int64
	Inserted []store.PreparedBar

	FailNext bool
}

func NewMockBarSink() *MockBarSink {
	return &MockBarSink{symbols: make(map[string]int64)}
}

func (m *MockBarSink) Prepare(ctx context.Context, b models.Bar) (store.PreparedBar, error) {
	if err := b.Validate(); err != nil {
		return store.PreparedBar{}, err
	}

	m.Mu.Lock()
	defer m.Mu.Unlock()
	id, ok := m.symbols[b.Symbol]
	if !ok {
		m.nextID++
		id = m.nextID
		m.symbols[b.Symbol] = id
	}
	return store.PreparedBar{SymbolID: id, Bar: b}, nil
}

func (m *MockBarSink) InsertBatch(ctx context.Context, rows []store.PreparedBar) (int, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.FailNext {
		m.FailNext = false
		return 0, errInsertFailed
	}
	m.Inserted = append(m.Inserted, rows...)
	return len(rows), nil
}

// MockStreamPublisher records every entry appended to it, keyed by
// stream name.
type MockStreamPublisher struct {
	Mu      sync.Mutex
	Entries map[string][]models.StreamEntry
}

func NewMockStreamPublisher() *MockStreamPublisher {
	return &MockStreamPublisher{Entries: make(map[string][]models.StreamEntry)}
}

func (m *MockStreamPublisher) Append(ctx context.Context, stream string, entry models.StreamEntry) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Entries[stream] = append(m.Entries[stream], entry)
	return nil
}

var errInsertFailed = &insertError{"insert batch failed"}

type insertError struct{ msg string }

func (e *insertError) Error() string { return e.msg }
