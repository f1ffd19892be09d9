package bus

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaDialer abstracts kafka.Dialer for testability.
type KafkaDialer interface {
	DialContext(ctx context.Context, network, address string) (KafkaConn, error)
}

// KafkaConn abstracts the subset of *kafka.Conn the topic creator needs.
type KafkaConn interface {
	Controller() (kafka.Broker, error)
	Close() error
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
}

// RealKafkaConn adapts a *kafka.Conn to KafkaConn.
type RealKafkaConn struct{ *kafka.Conn }

func (c *RealKafkaConn) Controller() (kafka.Broker, error) { return c.Conn.Controller() }
func (c *RealKafkaConn) Close() error                      { return c.Conn.Close() }
func (c *RealKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	return c.Conn.CreateTopics(topics...)
}
func (c *RealKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	return c.Conn.ReadPartitions(topics...)
}

// RealKafkaDialer adapts *kafka.Dialer to KafkaDialer.
type RealKafkaDialer struct{ *kafka.Dialer }

func (d *RealKafkaDialer) DialContext(ctx context.Context, network, address string) (KafkaConn, error) {
	conn, err := d.Dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return &RealKafkaConn{Conn: conn}, nil
}

// TopicCreator ensures the trades/bars topics exist with enough
// partitions for per-symbol sharded consumers.
type TopicCreator struct {
	logger *zap.Logger
	dialer KafkaDialer
}

// NewTopicCreator builds a TopicCreator over the real Kafka dialer.
func NewTopicCreator(logger *zap.Logger) *TopicCreator {
	return NewTopicCreatorWithDialer(logger, &RealKafkaDialer{Dialer: &kafka.Dialer{Timeout: 10 * time.Second}})
}

// NewTopicCreatorWithDialer builds a TopicCreator over a caller-supplied
// dialer, used in tests to substitute a fake broker.
func NewTopicCreatorWithDialer(logger *zap.Logger, dialer KafkaDialer) *TopicCreator {
	return &TopicCreator{logger: logger, dialer: dialer}
}

// Create ensures topicName exists on one of brokers, waiting briefly for
// partition metadata to propagate.
func (tc *TopicCreator) Create(brokers []string, topicName string) {
	ctx := context.Background()
	var conn KafkaConn
	var err error

	for _, addr := range brokers {
		conn, err = tc.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			break
		}
	}
	if err != nil {
		tc.logger.Warn("Failed to dial brokers", zap.Error(err))
		return
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		tc.logger.Warn("Failed to get controller", zap.Error(err))
		return
	}

	controllerAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	controllerConn, err := tc.dialer.DialContext(ctx, "tcp", controllerAddr)
	if err != nil {
		tc.logger.Warn("Failed to dial controller", zap.Error(err))
		return
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     4,
		ReplicationFactor: 1,
	})

	if err != nil {
		tc.logger.Info("Topic creation finished (might already exist)", zap.Error(err))
	} else {
		tc.logger.Info("Topic creation request sent", zap.String("topic", topicName))
	}

	tc.waitForTopic(conn, topicName)
}

func (tc *TopicCreator) waitForTopic(conn KafkaConn, topicName string) {
	tc.logger.Info("Waiting for topic initialization...", zap.String("topic", topicName))
	for i := 0; i < 5; i++ {
		time.Sleep(200 * time.Millisecond)
		partitions, err := conn.ReadPartitions(topicName)
		if err == nil && len(partitions) > 0 {
			tc.logger.Info("Topic is ready!", zap.Int("partitions", len(partitions)))
			return
		}
	}
	tc.logger.Warn("Timed out waiting for topic")
}
