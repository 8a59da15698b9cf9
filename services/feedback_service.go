// Package services holds the outward-facing infrastructure services: the
// Redis feedback publisher and the health checker.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vincentrandon/freelance-project-saas/logger"
	"github.com/vincentrandon/freelance-project-saas/models/preview/service"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// FeedbackChannel is the Redis Pub/Sub channel the learning collaborator
// subscribes to. One event is published per approval or rejection.
const FeedbackChannel = "reconcile:feedback"

// RedisFeedbackService publishes feedback events over Redis Pub/Sub.
type RedisFeedbackService struct {
	redisClient *redis.Client
	log         *zap.SugaredLogger
	metrics     *feedbackMetrics
}

var _ service.FeedbackPublisher = (*RedisFeedbackService)(nil)

type feedbackMetrics struct {
	publishLatency prometheus.Histogram
	errorCount     prometheus.Counter
	eventCount     *prometheus.CounterVec
}

var (
	feedbackMetricsOnce   sync.Once
	sharedFeedbackMetrics *feedbackMetrics
)

// Metrics are registered once on the default registry; repeated service
// construction reuses them.
func initFeedbackMetrics() *feedbackMetrics {
	feedbackMetricsOnce.Do(func() {
		sharedFeedbackMetrics = &feedbackMetrics{
			publishLatency: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "reconcile_feedback_publish_duration_seconds",
				Help:    "Time taken to publish feedback events",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			}),
			errorCount: promauto.NewCounter(prometheus.CounterOpts{
				Name: "reconcile_feedback_errors_total",
				Help: "Total number of feedback publishing errors",
			}),
			eventCount: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "reconcile_feedback_events_total",
				Help: "Total number of feedback events published",
			}, []string{"outcome"}),
		}
	})
	return sharedFeedbackMetrics
}

// NewRedisFeedbackService returns a new instance of RedisFeedbackService.
func NewRedisFeedbackService(redisClient *redis.Client) *RedisFeedbackService {
	return &RedisFeedbackService{
		redisClient: redisClient,
		log:         logger.GetLogger(),
		metrics:     initFeedbackMetrics(),
	}
}

// PublishFeedback serializes the event and publishes it on the feedback
// channel. Stamp fields missing from the event are filled in.
func (s *RedisFeedbackService) PublishFeedback(ctx context.Context, event *types.FeedbackEvent) error {
	startTime := time.Now()
	defer func() {
		s.metrics.publishLatency.Observe(time.Since(startTime).Seconds())
	}()

	if event.PreviewID == "" {
		s.metrics.errorCount.Inc()
		return fmt.Errorf("invalid feedback event: missing preview ID")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.metrics.errorCount.Inc()
		return fmt.Errorf("failed to marshal feedback event: %w", err)
	}

	if err := s.redisClient.Publish(ctx, FeedbackChannel, data).Err(); err != nil {
		s.metrics.errorCount.Inc()
		return fmt.Errorf("failed to publish feedback event: %w", err)
	}

	s.metrics.eventCount.WithLabelValues(string(event.Outcome)).Inc()
	s.log.Debugw("Published feedback event",
		"previewID", event.PreviewID,
		"outcome", event.Outcome,
		"hadEdits", event.HadEdits,
	)
	return nil
}
