package publisher

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/promoworker/pkg/errors"
)

func TestKafkaPublisherSend(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	msg := Message{Text: "oferta", ImageURL: "https://example.com/i.jpg"}

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got Message
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got != msg {
			return stderrors.New("unexpected payload")
		}
		return nil
	})

	publisher := NewKafkaPublisherWithProducer(producer, "promos")
	require.NoError(t, publisher.Send(context.Background(), msg))
	require.NoError(t, publisher.Close())
}

func TestKafkaPublisherSendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewKafkaPublisherWithProducer(producer, "promos")
	err := publisher.Send(context.Background(), Message{Text: "oferta"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeNetwork, errors.KindOf(err))
	require.NoError(t, publisher.Close())
}

func TestKafkaPublisherCancelled(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	publisher := NewKafkaPublisherWithProducer(producer, "promos")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.Send(ctx, Message{Text: "oferta"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypePublisher, errors.KindOf(err))
	require.NoError(t, publisher.Close())
}
