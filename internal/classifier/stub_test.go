package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubReturnsFixedPlaceholder(t *testing.T) {
	stub := NewStub(0)

	for _, tensor := range [][]float32{nil, make([]float32, 10), make([]float32, 150*150*3)} {
		result, err := stub.Classify(tensor)
		require.NoError(t, err)
		assert.Equal(t, "Healthy", result.Label)
		assert.Equal(t, 94.3, result.Confidence)
		assert.True(t, result.Degraded)
	}
}

func TestStubInputSize(t *testing.T) {
	assert.Equal(t, defaultImageSize, NewStub(0).InputSize())
	assert.Equal(t, 224, NewStub(224).InputSize())
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 94.35, round2(94.3456))
	assert.Equal(t, 100.0, round2(99.999))
	assert.Equal(t, 0.0, round2(0.0012))
}
