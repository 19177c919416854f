package classifier

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/nfnt/resize"
)

const channels = 3

// Preprocess decodes an uploaded image, resizes it to a size×size square,
// and scales pixel intensities to [0, 1]. The returned slice is laid out
// NHWC with a leading batch dimension of 1, i.e. 1×size×size×3 values.
func Preprocess(r io.Reader, size int) ([]float32, error) {
	if size < 1 {
		size = defaultImageSize
	}

	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)

	tensor := make([]float32, size*size*channels)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r16, g16, b16, _ := resized.At(x, y).RGBA()
			base := (y*size + x) * channels
			tensor[base] = float32(r16) / 65535.0
			tensor[base+1] = float32(g16) / 65535.0
			tensor[base+2] = float32(b16) / 65535.0
		}
	}
	return tensor, nil
}

// PreprocessFile runs Preprocess over a saved upload.
func PreprocessFile(path string, size int) ([]float32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Preprocess(file, size)
}
