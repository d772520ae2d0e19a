package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	messages []kafka.Message
	closed   bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_KeysByProduct(t *testing.T) {
	writer := &captureWriter{}
	publisher := NewKafkaPublisher(writer)

	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	err := publisher.PublishClassificationChanged(context.Background(), ClassificationChanged{
		ProductID:           "123",
		IsFeatured:          true,
		FeaturedScore:       decimal.RequireFromString("71.25"),
		RecommendationScore: decimal.Zero,
		OccurredAt:          at,
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "123", string(msg.Key))
	assert.Equal(t, TypeClassificationChanged, string(msg.Headers[0].Value))

	var decoded ClassificationChanged
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.True(t, decoded.IsFeatured)
	assert.True(t, decoded.FeaturedScore.Equal(decimal.RequireFromString("71.25")))

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.PublishClassificationChanged(context.Background(), ClassificationChanged{}))
}
