package features

import (
	"bytes"
	"context"
	"image"

	// Registered so DecodeConfig recognizes the formats the encoder emits
	// as fallbacks.
	_ "image/jpeg"
	_ "image/png"
)

// HeaderDecoder reads only image headers. It stands in for the full codec
// until the compression engine is attached.
type HeaderDecoder struct{}

// Decode implements Decoder.
func (HeaderDecoder) Decode(ctx context.Context, data []byte) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
