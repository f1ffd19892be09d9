package testutils

import (
	"context"
	"sync"

	"github.com/shubham-shewale/stock-watchlist/pkg/streamlog"
)

// MockStreamReader replays a fixed batch of entries once, then blocks
// until ctx is cancelled, mirroring a real GroupReader's blocking read.
type MockStreamReader struct {
	Entries []streamlog.Entry
	served  bool

	Mu     sync.Mutex
	Acked  []string
	Closed bool
}

func (m *MockStreamReader) Read(ctx context.Context) ([]streamlog.Entry, error) {
	m.Mu.Lock()
	if !m.served {
		m.served = true
		entries := m.Entries
		m.Mu.Unlock()
		return entries, nil
	}
	m.Mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

func (m *MockStreamReader) Ack(ctx context.Context, stream, id string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Acked = append(m.Acked, id)
	return nil
}

// MockPublisher records published payloads, optionally failing.
type MockPublisher struct {
	Mu        sync.Mutex
	Published [][]byte
	FailAll   bool
}

var errPublishFailed = publishError{"mock publish failure"}

type publishError struct{ msg string }

func (e publishError) Error() string { return e.msg }

func (m *MockPublisher) Publish(ctx context.Context, payload []byte) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.FailAll {
		return errPublishFailed
	}
	m.Published = append(m.Published, payload)
	return nil
}
