package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var ErrUnsupportedImage = errors.New("unsupported image")

const jpegQuality = 85

// Result is a thumbnail ready to be stored.
type Result struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
	Resized     bool
}

// Normalize decodes an uploaded image and, when it is wider than maxWidth,
// scales it down keeping the aspect ratio. Images within bounds are returned
// byte for byte. maxWidth <= 0 disables resizing.
func Normalize(r io.Reader, maxWidth int) (Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read image: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	contentType, ext := formatInfo(format)
	if maxWidth <= 0 || cfg.Width <= maxWidth {
		return Result{
			Data:        raw,
			ContentType: contentType,
			Ext:         ext,
			Width:       cfg.Width,
			Height:      cfg.Height,
		}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	resized := resize(img, maxWidth)
	bounds := resized.Bounds()

	var buf bytes.Buffer
	switch format {
	case "png", "gif":
		if err := png.Encode(&buf, resized); err != nil {
			return Result{}, fmt.Errorf("failed to encode PNG: %w", err)
		}
		contentType, ext = "image/png", ".png"
	default:
		// webp has no encoder in x/image; fall back to JPEG
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return Result{}, fmt.Errorf("failed to encode JPEG: %w", err)
		}
		contentType, ext = "image/jpeg", ".jpg"
	}

	return Result{
		Data:        buf.Bytes(),
		ContentType: contentType,
		Ext:         ext,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Resized:     true,
	}, nil
}

func resize(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	newHeight := height * maxWidth / width
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func formatInfo(format string) (contentType, ext string) {
	switch format {
	case "jpeg":
		return "image/jpeg", ".jpg"
	case "png":
		return "image/png", ".png"
	case "gif":
		return "image/gif", ".gif"
	case "webp":
		return "image/webp", ".webp"
	default:
		return "application/octet-stream", ""
	}
}
