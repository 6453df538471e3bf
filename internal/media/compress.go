// Package media downscales and re-encodes uploaded images.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	ScalePercent = 42
	JPEGQuality  = 69
	WebPQuality  = 77

	// MaxDecodedSize bounds width*height*4 so crafted headers can't exhaust memory.
	MaxDecodedSize = 200 << 20
)

var ErrSkipped = errors.New("format is not recompressed")

// Compressor shrinks images by a fixed ratio.
type Compressor struct {
	scale          int
	jpegQuality    int
	webpQuality    float32
	maxDecodedSize int64
}

func NewCompressor() *Compressor {
	return &Compressor{
		scale:          ScalePercent,
		jpegQuality:    JPEGQuality,
		webpQuality:    WebPQuality,
		maxDecodedSize: MaxDecodedSize,
	}
}

// Compressible reports whether files with ext are recompressed at all. GIF keeps its animation untouched.
func Compressible(ext string) bool {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	default:
		return false
	}
}

// Compress decodes r, scales it and encodes it in the format implied by ext.
// Any error means the caller should keep the original file.
func (c *Compressor) Compress(r io.Reader, ext string) ([]byte, error) {
	ext = strings.ToLower(ext)
	if !Compressible(ext) {
		return nil, fmt.Errorf("%w: %s", ErrSkipped, ext)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read image dimensions: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height)*4 > c.maxDecodedSize {
		return nil, fmt.Errorf("image too large: %dx%d pixels", cfg.Width, cfg.Height)
	}

	// Decoding also drops EXIF metadata
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	w, h := scaled(cfg.Width, c.scale), scaled(cfg.Height, c.scale)
	resized := imaging.Resize(img, w, h, imaging.Lanczos)

	var buf bytes.Buffer
	switch ext {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: c.jpegQuality})
	case ".png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, resized)
	case ".webp":
		err = webp.Encode(&buf, resized, &webp.Options{Quality: c.webpQuality})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func scaled(v, percent int) int {
	s := v * percent / 100
	if s < 1 {
		return 1
	}
	return s
}

// CompressedName is the stored name of the recompressed variant of filename.
func CompressedName(filename string) string {
	return "compressed_" + filepath.Base(filename)
}
