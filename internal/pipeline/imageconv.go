package pipeline

import (
	"bytes"
	"fmt"
	stdimage "image"
	"image/draw"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"storyreel/internal/domain"
	"storyreel/internal/providers/image"
)

const jpegQuality = 92

// toJPEG returns the asset as JPEG bytes, flattening transparency onto white.
func toJPEG(asset *image.Asset) ([]byte, error) {
	if asset == nil || len(asset.Data) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrMalformedResponse)
	}
	if asset.Format == "jpeg" {
		return asset.Data, nil
	}
	src, _, err := stdimage.Decode(bytes.NewReader(asset.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s image: %v", domain.ErrMalformedResponse, asset.Format, err)
	}
	canvas := stdimage.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), stdimage.White, stdimage.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Over)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
