package compress

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// jpegQualityLadder is walked top to bottom until the encoded image fits the
// size budget. The final rung is used even when it still overshoots, since
// the alternative is discarding evidence.
var jpegQualityLadder = []int{85, 75, 65, 55, 50}

func (c *Compressor) compressImage(inputPath, outputPath string) (int64, error) {
	payload, err := os.ReadFile(inputPath)
	if err != nil {
		return 0, fmt.Errorf("read image: %w", err)
	}

	decoded, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("decode image: %w", err)
	}

	scaled := scaleToFit(decoded, c.cfg.Compression.MaxImageWidth, c.cfg.Compression.MaxImageHeight)

	var encoded []byte
	for _, quality := range jpegQualityLadder {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: quality}); err != nil {
			return 0, fmt.Errorf("encode jpeg at quality %d: %w", quality, err)
		}
		encoded = buf.Bytes()
		if int64(len(encoded)) <= c.cfg.Compression.ImageBudgetBytes {
			break
		}
	}

	if err := os.WriteFile(outputPath, encoded, 0o644); err != nil {
		return 0, fmt.Errorf("write compressed image: %w", err)
	}
	return int64(len(encoded)), nil
}

// scaleToFit shrinks an image to fit within maxWidth x maxHeight while
// preserving aspect ratio. Images already inside the bounds are returned
// unchanged; upscaling never happens.
func scaleToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if maxWidth <= 0 || maxHeight <= 0 {
		return src
	}
	if width <= maxWidth && height <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(width)
	if other := float64(maxHeight) / float64(height); other < scale {
		scale = other
	}
	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
