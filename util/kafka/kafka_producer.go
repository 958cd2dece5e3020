// Package kafka publishes block assembly events to a Kafka topic, or to the
// in-process broker for memory:// URLs.
package kafka

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/IBM/sarama"
	"github.com/horizenofficial/sctemplate/errors"
	inmemorykafka "github.com/horizenofficial/sctemplate/util/kafka/in_memory_kafka"
	"github.com/horizenofficial/sctemplate/ulogger"
)

type KafkaProducerI interface {
	Send(key []byte, data []byte) error
	Close() error
}

type SyncKafkaProducer struct {
	Producer sarama.SyncProducer
	Topic    string
}

// NewSyncKafkaProducer wraps an existing sarama producer.
func NewSyncKafkaProducer(producer sarama.SyncProducer, topic string) *SyncKafkaProducer {
	return &SyncKafkaProducer{
		Producer: producer,
		Topic:    topic,
	}
}

func (k *SyncKafkaProducer) Close() error {
	if err := k.Producer.Close(); err != nil {
		return errors.NewServiceError("failed to close Kafka producer", err)
	}

	return nil
}

func (k *SyncKafkaProducer) Send(key []byte, data []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: k.Topic,
		Value: sarama.ByteEncoder(data),
	}

	if key != nil {
		msg.Key = sarama.ByteEncoder(key)
	}

	if _, _, err := k.Producer.SendMessage(msg); err != nil {
		return errors.NewServiceError("failed to send message to topic %s", k.Topic, err)
	}

	return nil
}

// NewKafkaProducer connects a producer for kafkaURL. The topic is the URL
// path; brokers are the comma separated host list.
//
//	kafka://broker1:9092,broker2:9092/templates?retry_max=5&flush_bytes=1024
//	memory:///templates
func NewKafkaProducer(logger ulogger.Logger, kafkaURL *url.URL) (KafkaProducerI, error) {
	if kafkaURL == nil {
		return nil, errors.NewConfigurationError("kafka url is nil")
	}

	topic := strings.TrimPrefix(kafkaURL.Path, "/")
	if topic == "" {
		return nil, errors.NewConfigurationError("kafka url %s has no topic", kafkaURL.Redacted())
	}

	switch kafkaURL.Scheme {
	case "memory":
		logger.Infof("[Kafka] using in-memory broker for topic %s", topic)
		return NewSyncKafkaProducer(inmemorykafka.NewInMemorySyncProducer(inmemorykafka.GetSharedBroker()), topic), nil

	case "kafka":
		brokersURL := strings.Split(kafkaURL.Host, ",")

		config := sarama.NewConfig()
		config.ClientID = getQueryParam(kafkaURL, "client_id", "sctemplate")
		config.Producer.Return.Successes = true
		config.Producer.Return.Errors = true
		config.Producer.RequiredAcks = sarama.WaitForAll
		config.Producer.Retry.Max = getQueryParamInt(kafkaURL, "retry_max", 5)
		config.Producer.Flush.Bytes = getQueryParamInt(kafkaURL, "flush_bytes", 16*1024)

		producer, err := sarama.NewSyncProducer(brokersURL, config)
		if err != nil {
			return nil, errors.NewServiceError("unable to connect to kafka brokers %v", brokersURL, err)
		}

		logger.Infof("[Kafka] producing to topic %s on %v", topic, brokersURL)

		return NewSyncKafkaProducer(producer, topic), nil

	default:
		return nil, errors.NewConfigurationError("unknown kafka scheme %q", kafkaURL.Scheme)
	}
}

func getQueryParam(u *url.URL, key string, defaultValue string) string {
	if value := u.Query().Get(key); value != "" {
		return value
	}

	return defaultValue
}

func getQueryParamInt(u *url.URL, key string, defaultValue int) int {
	value, err := strconv.Atoi(u.Query().Get(key))
	if err != nil {
		return defaultValue
	}

	return value
}
