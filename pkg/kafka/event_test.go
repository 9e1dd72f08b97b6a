package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reviewModeratedData struct {
	ReviewID string `json:"review_id"`
	Status   string `json:"status"`
}

func TestNewEvent(t *testing.T) {
	data := reviewModeratedData{ReviewID: "rev-1", Status: "approved"}

	event, err := NewEvent("lms.review.moderated", "rev-1", "review", "review-service", data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "lms.review.moderated", event.EventType)
	assert.Equal(t, "rev-1", event.AggregateID)
	assert.Equal(t, "review", event.AggregateType)
	assert.Equal(t, "review-service", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.False(t, event.Timestamp.IsZero())
}

func TestEvent_MarshalRoundTrip(t *testing.T) {
	original, err := NewEvent("lms.course.rating_updated", "course-1", "course", "review-service",
		map[string]any{"avg_rating": 4.5, "total_rating": 12})
	require.NoError(t, err)
	original.WithCorrelationID("corr-1")

	raw, err := original.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, original.EventID, decoded.EventID)
	assert.Equal(t, "corr-1", decoded.CorrelationID)

	var payload map[string]any
	require.NoError(t, decoded.UnmarshalData(&payload))
	assert.Equal(t, 4.5, payload["avg_rating"])
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	_, err := UnmarshalEvent([]byte("{not json"))
	assert.Error(t, err)
}
