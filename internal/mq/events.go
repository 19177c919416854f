package mq

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// PredictionEvent is emitted after a prediction is persisted to history.
type PredictionEvent struct {
	PredictionID int       `json:"prediction_id"`
	UserID       int       `json:"user_id"`
	Disease      string    `json:"disease"`
	Confidence   float64   `json:"confidence"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// PublishPrediction serializes the event and publishes it to the channel.
func (m *MQ) PublishPrediction(ctx context.Context, channel string, event PredictionEvent) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	attrs := map[string]string{
		"user_id": strconv.Itoa(event.UserID),
		"disease": event.Disease,
	}
	return m.Publish(ctx, channel, data, attrs)
}
