package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cropsight/apiserver/types"
)

// PredictionRepository handles persistence for prediction records.
type PredictionRepository struct {
	db *sql.DB
}

func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Create appends a prediction record. Rows are insert-only.
func (r *PredictionRepository) Create(ctx context.Context, prediction types.Prediction) (types.Prediction, error) {
	prediction.CreatedAt = time.Now()

	const query = `
		INSERT INTO predictions (user_id, disease, confidence, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		prediction.UserID,
		prediction.Disease,
		prediction.Confidence,
		prediction.CreatedAt,
	).Scan(&prediction.ID); err != nil {
		return types.Prediction{}, err
	}
	return prediction, nil
}

// RecentByUser returns the user's most recent predictions, newest first.
// The id tiebreak keeps ordering stable for rows sharing a timestamp.
func (r *PredictionRepository) RecentByUser(ctx context.Context, userID, limit int) ([]types.Prediction, error) {
	if limit < 1 {
		limit = 10
	}

	const query = `
		SELECT id, user_id, disease, confidence, created_at
		FROM predictions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	predictions := make([]types.Prediction, 0, limit)
	for rows.Next() {
		var prediction types.Prediction
		if err := rows.Scan(
			&prediction.ID,
			&prediction.UserID,
			&prediction.Disease,
			&prediction.Confidence,
			&prediction.CreatedAt,
		); err != nil {
			return nil, err
		}
		predictions = append(predictions, prediction)
	}
	return predictions, rows.Err()
}

// RecentWithUsers returns the latest predictions across all users joined
// with the owning usernames, newest first.
func (r *PredictionRepository) RecentWithUsers(ctx context.Context, limit int) ([]types.PredictionWithUser, error) {
	if limit < 1 {
		limit = 100
	}

	const query = `
		SELECT u.username, p.disease, p.confidence, p.created_at
		FROM predictions p
		JOIN users u ON p.user_id = u.id
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	predictions := make([]types.PredictionWithUser, 0, limit)
	for rows.Next() {
		var prediction types.PredictionWithUser
		if err := rows.Scan(
			&prediction.Username,
			&prediction.Disease,
			&prediction.Confidence,
			&prediction.CreatedAt,
		); err != nil {
			return nil, err
		}
		predictions = append(predictions, prediction)
	}
	return predictions, rows.Err()
}

// DeleteByUser removes all of a user's predictions. Deleting zero rows is
// not an error.
func (r *PredictionRepository) DeleteByUser(ctx context.Context, userID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM predictions WHERE user_id = $1`, userID)
	return err
}

// CountByUser reports how many predictions a user owns.
func (r *PredictionRepository) CountByUser(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM predictions WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}
