// Package inmemorykafka is a single-process stand-in for a Kafka cluster,
// used for memory:// producer URLs and in tests.
package inmemorykafka

import (
	"sync"

	"github.com/IBM/sarama"
)

// Message is a produced record.
type Message struct {
	Topic  string
	Key    []byte
	Value  []byte
	Offset int64
}

// InMemoryBroker keeps every produced message per topic.
type InMemoryBroker struct {
	mu          sync.RWMutex
	topics      map[string][]*Message
	subscribers map[string][]chan *Message
}

func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		topics:      make(map[string][]*Message),
		subscribers: make(map[string][]chan *Message),
	}
}

// Produce appends a message to topic and offers it to the subscribers. Slow
// subscribers miss messages rather than block the producer.
func (b *InMemoryBroker) Produce(topic string, key []byte, value []byte) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	msg := &Message{
		Topic:  topic,
		Key:    key,
		Value:  value,
		Offset: int64(len(b.topics[topic])),
	}

	b.topics[topic] = append(b.topics[topic], msg)

	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		default:
		}
	}

	return msg.Offset
}

// Messages returns a copy of everything produced to topic.
func (b *InMemoryBroker) Messages(topic string) []*Message {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]*Message(nil), b.topics[topic]...)
}

// Subscribe returns a channel receiving messages produced to topic from now on.
func (b *InMemoryBroker) Subscribe(topic string, buffer int) <-chan *Message {
	ch := make(chan *Message, buffer)

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()

	return ch
}

func (b *InMemoryBroker) Topics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	topics := make([]string, 0, len(b.topics))
	for topic := range b.topics {
		topics = append(topics, topic)
	}

	return topics
}

// InMemorySyncProducer implements sarama.SyncProducer on top of an InMemoryBroker.
type InMemorySyncProducer struct {
	broker *InMemoryBroker
}

var _ sarama.SyncProducer = (*InMemorySyncProducer)(nil)

func NewInMemorySyncProducer(broker *InMemoryBroker) *InMemorySyncProducer {
	return &InMemorySyncProducer{broker: broker}
}

func (p *InMemorySyncProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	var (
		key   []byte
		value []byte
		err   error
	)

	if msg.Key != nil {
		if key, err = msg.Key.Encode(); err != nil {
			return 0, 0, err
		}
	}

	if msg.Value != nil {
		if value, err = msg.Value.Encode(); err != nil {
			return 0, 0, err
		}
	}

	return 0, p.broker.Produce(msg.Topic, key, value), nil
}

func (p *InMemorySyncProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	for _, msg := range msgs {
		if _, _, err := p.SendMessage(msg); err != nil {
			return err
		}
	}

	return nil
}

func (p *InMemorySyncProducer) Close() error {
	return nil
}

func (p *InMemorySyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnFlagReady
}

func (p *InMemorySyncProducer) IsTransactional() bool {
	return false
}

func (p *InMemorySyncProducer) BeginTxn() error {
	return nil
}

func (p *InMemorySyncProducer) CommitTxn() error {
	return nil
}

func (p *InMemorySyncProducer) AbortTxn() error {
	return nil
}

func (p *InMemorySyncProducer) AddOffsetsToTxn(_ map[string][]*sarama.PartitionOffsetMetadata, _ string) error {
	return nil
}

func (p *InMemorySyncProducer) AddMessageToTxn(_ *sarama.ConsumerMessage, _ string, _ *string) error {
	return nil
}

var (
	sharedBroker *InMemoryBroker
	brokerOnce   sync.Once
)

// GetSharedBroker returns the process wide broker backing memory:// URLs.
func GetSharedBroker() *InMemoryBroker {
	brokerOnce.Do(func() {
		sharedBroker = NewInMemoryBroker()
	})

	return sharedBroker
}
