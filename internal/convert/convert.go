// Package convert transcodes HEIC/HEIF images to JPEG.
package convert

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"
)

// JPEGContentType is the content type declared for converted images.
const JPEGContentType = "image/jpeg"

// DefaultQuality matches the lossy mid-quality setting used in production.
const DefaultQuality = 50

func init() {
	// Without it the decoded planes alias decoder memory that is freed
	// before Decode returns.
	goheif.SafeEncoding = true
}

// ConversionError is returned when the source is not a decodable HEIC/HEIF
// container or the JPEG encode fails.
type ConversionError struct {
	Stage string // "decode" or "encode"
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("heic conversion failed at %s: %v", e.Stage, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// IsHEIC reports whether filename carries a .heic or .heif extension, in any case.
func IsHEIC(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".heic", ".heif":
		return true
	}
	return false
}

// Converter turns HEIC/HEIF bytes into JPEG bytes at a fixed quality.
type Converter struct {
	quality int
}

// New returns a Converter. Quality is clamped to 1-100.
func New(quality int) *Converter {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return &Converter{quality: quality}
}

// Quality returns the JPEG quality factor in use.
func (c *Converter) Quality() int {
	return c.quality
}

// Convert decodes src as HEIC/HEIF and re-encodes it as JPEG.
func (c *Converter) Convert(src []byte) ([]byte, error) {
	img, err := decodeHEIC(src)
	if err != nil {
		return nil, &ConversionError{Stage: "decode", Err: err}
	}
	out, err := c.encodeJPEG(img)
	if err != nil {
		return nil, &ConversionError{Stage: "encode", Err: err}
	}
	return out, nil
}

func decodeHEIC(src []byte) (img image.Image, err error) {
	if len(src) == 0 {
		return nil, fmt.Errorf("empty input")
	}
	// The container parser panics on some truncated inputs.
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("malformed container: %v", r)
		}
	}()
	return goheif.Decode(bytes.NewReader(src))
}

func (c *Converter) encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(c.quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
