package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const defaultImageSize = 150

// Metadata describes the exported model: tensor shapes, the ordered class
// label set, and the square input dimension.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

// ONNX runs inference through an onnxruntime session. The session and its
// tensors are reused across calls, so Classify serializes callers.
type ONNX struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewONNX loads the model artifact and its metadata and prepares a session.
func NewONNX(modelPath, metadataPath string) (*ONNX, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnx environment: %w", err)
	}

	metaFile, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("read model metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return nil, fmt.Errorf("parse model metadata: %w", err)
	}
	if len(metadata.Classes) == 0 {
		return nil, errors.New("model metadata lists no classes")
	}
	if metadata.ImageSize < 1 {
		metadata.ImageSize = defaultImageSize
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &ONNX{
		session:      session,
		metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (o *ONNX) Classify(tensor []float32) (Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	input := o.inputTensor.GetData()
	if len(tensor) != len(input) {
		return Result{}, fmt.Errorf("tensor has %d values, model expects %d", len(tensor), len(input))
	}
	copy(input, tensor)

	if err := o.session.Run(); err != nil {
		return Result{}, fmt.Errorf("inference failed: %w", err)
	}

	output := o.outputTensor.GetData()
	maxIdx := 0
	maxVal := output[0]
	for i, val := range output {
		if i >= len(o.metadata.Classes) {
			break
		}
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}

	return Result{
		Label:      o.metadata.Classes[maxIdx],
		Confidence: round2(float64(maxVal) * 100),
	}, nil
}

func (o *ONNX) InputSize() int {
	return o.metadata.ImageSize
}

func (o *ONNX) Close() {
	if o.inputTensor != nil {
		o.inputTensor.Destroy()
	}
	if o.outputTensor != nil {
		o.outputTensor.Destroy()
	}
	if o.session != nil {
		o.session.Destroy()
	}
	ort.DestroyEnvironment()
}
