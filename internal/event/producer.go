package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/catalogseed/internal/domain"
	pkgkafka "github.com/utafrali/catalogseed/pkg/kafka"
)

// TopicCatalogSeeded receives one event per completed seeding phase.
var TopicCatalogSeeded = pkgkafka.Topic("catalog", "seeded")

// Aggregate type constant.
const AggregateTypeSeedRun = "seed_run"

// SourceSeeder identifies events originating from the seeder.
const SourceSeeder = "catalog-seeder"

// PhaseCompletedData is the payload for a catalog.seeded event.
type PhaseCompletedData struct {
	RunID       string                   `json:"run_id"`
	Phase       string                   `json:"phase"`
	Counts      map[string]domain.Counts `json:"counts"`
	Totals      domain.Counts            `json:"totals"`
	DurationMS  int64                    `json:"duration_ms"`
	Interrupted bool                     `json:"interrupted"`
}

// Producer publishes seeding events to Kafka. A nil Producer, or one
// without a Kafka producer, drops every event.
type Producer struct {
	kafka  *pkgkafka.Producer
	topic  string
	logger *slog.Logger
}

// NewProducer creates an event producer. An empty topic selects
// TopicCatalogSeeded.
func NewProducer(kafka *pkgkafka.Producer, topic string, logger *slog.Logger) *Producer {
	if topic == "" {
		topic = TopicCatalogSeeded
	}
	return &Producer{
		kafka:  kafka,
		topic:  topic,
		logger: logger,
	}
}

// PublishPhaseCompleted publishes the report of a finished phase. Events of
// one run share the run id as key so they stay ordered.
func (p *Producer) PublishPhaseCompleted(ctx context.Context, runID string, report *domain.PhaseReport) error {
	if p == nil || p.kafka == nil {
		return nil
	}

	names := report.Names()
	data := PhaseCompletedData{
		RunID:       runID,
		Phase:       report.Phase,
		Counts:      make(map[string]domain.Counts, len(names)),
		Totals:      report.Totals(),
		DurationMS:  report.Duration.Milliseconds(),
		Interrupted: report.Interrupted,
	}
	for _, name := range names {
		data.Counts[name] = report.Get(name)
	}

	event, err := pkgkafka.NewEvent(TopicCatalogSeeded, runID, AggregateTypeSeedRun, SourceSeeder, data)
	if err != nil {
		return fmt.Errorf("create catalog.seeded event: %w", err)
	}
	event.WithCorrelationID(runID).WithMetadata("phase", report.Phase)

	if err := p.kafka.Publish(ctx, p.topic, event); err != nil {
		return fmt.Errorf("publish catalog.seeded event: %w", err)
	}

	p.logger.DebugContext(ctx, "published catalog.seeded event",
		slog.String("run_id", runID),
		slog.String("phase", report.Phase),
	)
	return nil
}

// Close closes the underlying Kafka producer.
func (p *Producer) Close() error {
	if p == nil || p.kafka == nil {
		return nil
	}
	return p.kafka.Close()
}
