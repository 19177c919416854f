package classifier

// Degraded-mode constants. When the model artifact is missing at startup
// the service keeps answering with this fixed placeholder instead of
// failing every request; responses carry Degraded=true so callers can tell.
const (
	stubLabel      = "Healthy"
	stubConfidence = 94.3
)

// Stub is the degraded-mode classifier. It accepts any tensor and returns
// the fixed placeholder result.
type Stub struct {
	inputSize int
}

// NewStub constructs the degraded-mode fallback classifier.
func NewStub(inputSize int) *Stub {
	if inputSize < 1 {
		inputSize = defaultImageSize
	}
	return &Stub{inputSize: inputSize}
}

func (s *Stub) Classify(tensor []float32) (Result, error) {
	return Result{Label: stubLabel, Confidence: stubConfidence, Degraded: true}, nil
}

func (s *Stub) InputSize() int {
	return s.inputSize
}

func (s *Stub) Close() {}
