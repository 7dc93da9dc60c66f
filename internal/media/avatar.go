// Package media prepares uploaded profile pictures before they are forwarded
// to the backend.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// MaxUploadBytes bounds the raw upload.
	MaxUploadBytes = 5 << 20
	// MaxEdge is the longest side after downscaling.
	MaxEdge = 512
	// MaxPixels bounds width*height as declared in the image header, checked
	// before any pixel data is decoded.
	MaxPixels   = 40_000_000
	jpegQuality = 85
)

var (
	ErrEmpty       = errors.New("profile picture is empty")
	ErrTooLarge    = fmt.Errorf("profile picture exceeds %d bytes", MaxUploadBytes)
	ErrUnsupported = errors.New("profile picture must be png, jpeg, or webp")
	ErrDimensions  = errors.New("profile picture dimensions are too large")
)

var allowedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// Picture is a processed image ready to be attached as a file part.
type Picture struct {
	Name        string
	ContentType string
	Data        []byte
	Width       int
	Height      int
}

// Prepare decodes r, fits it inside MaxEdge x MaxEdge and re-encodes it as
// JPEG. Images already within bounds are re-encoded without resizing.
func Prepare(r io.Reader, filename string) (*Picture, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read profile picture: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmpty
	}
	if len(raw) > MaxUploadBytes {
		return nil, ErrTooLarge
	}
	if !allowedTypes[http.DetectContentType(raw)] {
		return nil, ErrUnsupported
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, ErrDimensions
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	b := img.Bounds()
	if b.Dx() > MaxEdge || b.Dy() > MaxEdge {
		img = imaging.Fit(img, MaxEdge, MaxEdge, imaging.Lanczos)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode profile picture: %w", err)
	}

	return &Picture{
		Name:        jpegName(filename),
		ContentType: "image/jpeg",
		Data:        out.Bytes(),
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
	}, nil
}

func jpegName(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." || base == "/" {
		base = "profile_picture"
	}
	return base + ".jpg"
}
