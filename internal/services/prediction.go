package services

import (
	"context"

	"github.com/cropsight/apiserver/types"
)

const (
	defaultHistoryLimit   = 10
	defaultDashboardLimit = 100
)

// PredictionRepository defines persistence operations for predictions.
type PredictionRepository interface {
	Create(ctx context.Context, prediction types.Prediction) (types.Prediction, error)
	RecentByUser(ctx context.Context, userID, limit int) ([]types.Prediction, error)
	RecentWithUsers(ctx context.Context, limit int) ([]types.PredictionWithUser, error)
	DeleteByUser(ctx context.Context, userID int) error
}

// PredictionService encapsulates history use-cases.
type PredictionService struct {
	repo PredictionRepository
}

func NewPredictionService(repo PredictionRepository) *PredictionService {
	return &PredictionService{repo: repo}
}

// Record appends a history row for the user.
func (s *PredictionService) Record(ctx context.Context, userID int, disease string, confidence float64) (types.Prediction, error) {
	return s.repo.Create(ctx, types.Prediction{
		UserID:     userID,
		Disease:    disease,
		Confidence: confidence,
	})
}

// Recent returns the user's latest predictions, newest first, capped at 10.
func (s *PredictionService) Recent(ctx context.Context, userID int) ([]types.Prediction, error) {
	return s.repo.RecentByUser(ctx, userID, defaultHistoryLimit)
}

// RecentAll returns the latest predictions across all users for the
// administrative dashboard, capped at 100.
func (s *PredictionService) RecentAll(ctx context.Context) ([]types.PredictionWithUser, error) {
	return s.repo.RecentWithUsers(ctx, defaultDashboardLimit)
}

// Clear removes all of the user's predictions.
func (s *PredictionService) Clear(ctx context.Context, userID int) error {
	return s.repo.DeleteByUser(ctx, userID)
}
