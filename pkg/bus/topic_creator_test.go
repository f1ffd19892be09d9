package bus_test

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-watchlist/pkg/bus"
)

type mockConn struct {
	createdTopics []string
}

func (m *mockConn) Controller() (kafka.Broker, error) {
	return kafka.Broker{Host: "localhost", Port: 9093}, nil
}
func (m *mockConn) Close() error { return nil }
func (m *mockConn) CreateTopics(topics ...kafka.TopicConfig) error {
	for _, t := range topics {
		m.createdTopics = append(m.createdTopics, t.Topic)
	}
	return nil
}
func (m *mockConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	return []kafka.Partition{{Topic: topics[0]}}, nil
}

type mockDialer struct {
	conn *mockConn
}

func (d *mockDialer) DialContext(ctx context.Context, network, address string) (bus.KafkaConn, error) {
	if d.conn == nil {
		d.conn = &mockConn{}
	}
	return d.conn, nil
}

func TestTopicCreator_CreatesTopic(t *testing.T) {
	dialer := &mockDialer{}
	tc := bus.NewTopicCreatorWithDialer(zap.NewNop(), dialer)

	tc.Create([]string{"broker:9092"}, "stock_trades_realtime")

	if dialer.conn == nil {
		t.Fatal("dialer was never called")
	}
	if len(dialer.conn.createdTopics) == 0 {
		t.Fatal("no topics created")
	}
	if dialer.conn.createdTopics[0] != "stock_trades_realtime" {
		t.Errorf("created topic = %q, want %q", dialer.conn.createdTopics[0], "stock_trades_realtime")
	}
}
