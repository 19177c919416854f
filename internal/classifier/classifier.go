// Package classifier wraps the pre-trained crop-disease model behind a
// small interface so the HTTP layer never depends on the inference runtime.
package classifier

import "math"

// Result is the outcome of a single classification.
type Result struct {
	// Label is the predicted disease class.
	Label string
	// Confidence is the winning probability in percent, rounded to two
	// decimal places.
	Confidence float64
	// Degraded marks results produced by the stub fallback when no model
	// artifact could be loaded at startup.
	Degraded bool
}

// Classifier maps a preprocessed image tensor to a disease label.
type Classifier interface {
	// Classify runs inference over a tensor produced by Preprocess.
	Classify(tensor []float32) (Result, error)
	// InputSize is the square image dimension the model expects.
	InputSize() int
	// Close releases runtime resources. Safe to call once at shutdown.
	Close()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
