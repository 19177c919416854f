package types

import "time"

// Prediction is the stored outcome of one inference call, attributed to
// the user who made it.
type Prediction struct {
	// ID is the unique identifier of the prediction.
	ID int `json:"id" db:"id"`

	// UserID is the owning user. Anonymous predictions are never stored,
	// so a persisted row always references a user.
	UserID int `json:"user_id" db:"user_id"`

	// Disease is the predicted class label. Never empty.
	Disease string `json:"disease" db:"disease"`

	// Confidence is the model's confidence in percent, in [0, 100],
	// rounded to two decimal places.
	Confidence float64 `json:"confidence" db:"confidence"`

	// CreatedAt is assigned from the server clock at insert.
	CreatedAt time.Time `json:"timestamp" db:"created_at"`
}

// PredictionWithUser joins a prediction with the owning username for the
// administrative dashboard.
type PredictionWithUser struct {
	Username   string    `json:"username"`
	Disease    string    `json:"disease"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"timestamp"`
}
