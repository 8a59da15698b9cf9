package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentrandon/freelance-project-saas/types"
)

func sampleFeedbackEvent() *types.FeedbackEvent {
	return &types.FeedbackEvent{
		PreviewID:  "p-1",
		DocumentID: "doc-1",
		Outcome:    types.FeedbackOutcomeApproved,
		HadEdits:   true,
		Diff: map[string]types.FieldChange{
			"customer.name": {Extracted: "Acme", Final: "Acme Corp"},
		},
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublishFeedback(t *testing.T) {
	client, mock := redismock.NewClientMock()
	svc := NewRedisFeedbackService(client)

	event := sampleFeedbackEvent()
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	mock.ExpectPublish(FeedbackChannel, payload).SetVal(1)

	err = svc.PublishFeedback(context.Background(), event)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishFeedback_StampsOccurredAt(t *testing.T) {
	client, mock := redismock.NewClientMock()
	svc := NewRedisFeedbackService(client)

	event := sampleFeedbackEvent()
	event.OccurredAt = time.Time{}

	mock.Regexp().ExpectPublish(FeedbackChannel, `.*"occurredAt":"20.*`).SetVal(1)

	err := svc.PublishFeedback(context.Background(), event)
	assert.NoError(t, err)
	assert.False(t, event.OccurredAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishFeedback_MissingPreviewID(t *testing.T) {
	client, mock := redismock.NewClientMock()
	svc := NewRedisFeedbackService(client)

	event := sampleFeedbackEvent()
	event.PreviewID = ""

	err := svc.PublishFeedback(context.Background(), event)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing preview ID")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishFeedback_RedisError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	svc := NewRedisFeedbackService(client)

	event := sampleFeedbackEvent()
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	mock.ExpectPublish(FeedbackChannel, payload).SetErr(assert.AnError)

	err = svc.PublishFeedback(context.Background(), event)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish")
}
