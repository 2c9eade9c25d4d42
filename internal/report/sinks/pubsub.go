package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

// outcomeMessage is the wire shape published per outcome.
type outcomeMessage struct {
	RunID        string            `json:"run_id"`
	URL          string            `json:"url"`
	Success      bool              `json:"success"`
	FailureKind  string            `json:"failure_kind,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Title        string            `json:"title,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	StatusCode   int               `json:"status_code,omitempty"`
	Bytes        int64             `json:"bytes,omitempty"`
	DurationMS   int64             `json:"duration_ms"`
	Attempts     int               `json:"attempts"`
	ScrapedAt    time.Time         `json:"scraped_at"`
}

// PubsubSink publishes one message per outcome to a Pub/Sub topic.
// Page content stays out of the messages; downstream consumers read it
// from the store.
type PubsubSink struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

// NewPubsubSink connects to the project and verifies the topic exists.
func NewPubsubSink(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubsubSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	ok, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("check topic %s: %w", topicID, err)
	}
	if !ok {
		client.Close()
		return nil, fmt.Errorf("pubsub topic %s does not exist", topicID)
	}
	return &PubsubSink{client: client, topic: topic, logger: logger}, nil
}

func (s *PubsubSink) Name() string { return "pubsub" }

func (s *PubsubSink) Consume(ctx context.Context, outcomes []scraper.Outcome) error {
	results := make([]*pubsub.PublishResult, 0, len(outcomes))
	for _, out := range outcomes {
		data, err := json.Marshal(outcomeMessage{
			RunID:        out.RunID.String(),
			URL:          out.URL,
			Success:      out.Success,
			FailureKind:  string(out.FailureKind),
			ErrorMessage: out.ErrorMessage,
			Title:        out.Title,
			Metadata:     out.Metadata,
			StatusCode:   out.StatusCode,
			Bytes:        out.Bytes,
			DurationMS:   out.Duration.Milliseconds(),
			Attempts:     out.Attempts,
			ScrapedAt:    out.ScrapedAt,
		})
		if err != nil {
			return fmt.Errorf("encode outcome message for %s: %w", out.URL, err)
		}
		results = append(results, s.topic.Publish(ctx, &pubsub.Message{
			Data: data,
			Attributes: map[string]string{
				"domain":  out.Domain(),
				"success": fmt.Sprintf("%t", out.Success),
			},
		}))
	}

	var firstErr error
	for i, res := range results {
		if _, err := res.Get(ctx); err != nil {
			s.logger.Warn("publish outcome failed",
				zap.String("url", outcomes[i].URL), zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("publish outcome: %w", err)
			}
		}
	}
	return firstErr
}

func (s *PubsubSink) Close(ctx context.Context) error {
	s.topic.Stop()
	return s.client.Close()
}
