package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogseed/internal/domain"
	pkgkafka "github.com/utafrali/catalogseed/pkg/kafka"
	"github.com/utafrali/catalogseed/pkg/logger"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func sampleReport() *domain.PhaseReport {
	r := domain.NewPhaseReport("products")
	r.Record("product", domain.OutcomeCreated)
	r.Record("product", domain.OutcomeCreated)
	r.Record("product_categories", domain.OutcomeSkipped)
	r.Duration = 1500 * time.Millisecond
	return r
}

func TestPublishPhaseCompleted(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducer(pkgkafka.NewProducerWithWriter(w, nil, logger.Discard()), "", logger.Discard())

	require.NoError(t, p.PublishPhaseCompleted(context.Background(), "run-1", sampleReport()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "ecommerce.catalog.seeded", msg.Topic)
	assert.Equal(t, "run-1", string(msg.Key))

	var evt pkgkafka.Event
	require.NoError(t, json.Unmarshal(msg.Value, &evt))
	assert.Equal(t, AggregateTypeSeedRun, evt.AggregateType)
	assert.Equal(t, "run-1", evt.CorrelationID)
	assert.Equal(t, "products", evt.Metadata["phase"])

	var data PhaseCompletedData
	require.NoError(t, json.Unmarshal(evt.Data, &data))
	assert.Equal(t, "products", data.Phase)
	assert.Equal(t, 2, data.Counts["product"].Created)
	assert.Equal(t, 1, data.Counts["product_categories"].Skipped)
	assert.Equal(t, domain.Counts{Created: 2, Skipped: 1}, data.Totals)
	assert.Equal(t, int64(1500), data.DurationMS)
}

func TestPublishPhaseCompleted_CustomTopic(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducer(pkgkafka.NewProducerWithWriter(w, nil, logger.Discard()), "staging.catalog.seeded", logger.Discard())

	require.NoError(t, p.PublishPhaseCompleted(context.Background(), "run-2", sampleReport()))
	assert.Equal(t, "staging.catalog.seeded", w.msgs[0].Topic)
}

func TestPublishPhaseCompleted_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewProducer(pkgkafka.NewProducerWithWriter(w, nil, logger.Discard()), "", logger.Discard())

	err := p.PublishPhaseCompleted(context.Background(), "run-3", sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestPublishPhaseCompleted_Disabled(t *testing.T) {
	var nilProducer *Producer
	assert.NoError(t, nilProducer.PublishPhaseCompleted(context.Background(), "run", sampleReport()))
	assert.NoError(t, nilProducer.Close())

	p := NewProducer(nil, "", logger.Discard())
	assert.NoError(t, p.PublishPhaseCompleted(context.Background(), "run", sampleReport()))
}
