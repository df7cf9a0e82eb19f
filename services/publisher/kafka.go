package publisher

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"

	"sjsage522/promoworker/pkg/errors"
)

// KafkaPublisher mirrors promotions into a Kafka topic
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher connects a synchronous producer to the brokers
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, saramaConfig)
	if err != nil {
		return nil, errors.NewNetwork(PublisherNameKafka, "failed to create producer", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Send publishes the JSON encoded message
func (p *KafkaPublisher) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return errors.NewPublisher(PublisherNameKafka, "send cancelled", err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return errors.NewPublisher(PublisherNameKafka, "failed to encode message", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return errors.NewNetwork(PublisherNameKafka, "failed to publish message", err)
	}
	return nil
}

// Close closes the producer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
