package extract

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gen2brain/heic"
	_ "golang.org/x/image/webp"

	"github.com/vbonduro/invoicescan/internal/vision"
)

// nativeTypes are the formats every vision backend accepts without conversion.
var nativeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// PrepareImage verifies that data is a decodable image and returns it in a
// form the vision backends accept. Native formats pass through untouched,
// everything else is re-encoded as PNG.
func PrepareImage(data []byte) (vision.Image, error) {
	if len(data) == 0 {
		return vision.Image{}, fmt.Errorf("image is empty")
	}

	mimeType := mimetype.Detect(data).String()

	img, err := decode(data, mimeType)
	if err != nil {
		return vision.Image{}, fmt.Errorf("failed to decode %s: %w", mimeType, err)
	}

	if nativeTypes[mimeType] {
		return vision.Image{Data: data, MimeType: mimeType}, nil
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return vision.Image{}, fmt.Errorf("failed to encode png: %w", err)
	}
	return vision.Image{Data: buf.Bytes(), MimeType: "image/png"}, nil
}

func decode(data []byte, mimeType string) (image.Image, error) {
	switch mimeType {
	case "image/heic", "image/heif":
		return heic.Decode(bytes.NewReader(data))
	default:
		return imaging.Decode(bytes.NewReader(data))
	}
}
