// Image loading and saving for uploads and the desktop file dialogs
package imgio

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned for files outside the allow-list.
var ErrUnsupportedFormat = errors.New("unsupported image format")

var supportedExtensions = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".tiff": "tiff",
	".tif":  "tiff",
	".bmp":  "bmp",
	".webp": "webp",
}

// ImageLoader handles image file operations
type ImageLoader struct {
	logger   *slog.Logger
	maxBytes int64
}

func NewImageLoader(logger *slog.Logger) *ImageLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageLoader{logger: logger}
}

// SetMaxBytes limits how much Decode reads; zero means unlimited.
func (il *ImageLoader) SetMaxBytes(n int64) {
	il.maxBytes = n
}

// Decode reads an image from r. name, when it has an extension, must be on
// the allow-list; the content decides the actual decoder.
func (il *ImageLoader) Decode(r io.Reader, name string) (image.Image, string, error) {
	if name != "" && filepath.Ext(name) != "" && !IsSupported(name) {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	var limited *limitedReader
	if il.maxBytes > 0 {
		limited = &limitedReader{r: r, n: il.maxBytes}
		r = limited
	}

	img, format, err := image.Decode(bufio.NewReader(r))
	if err != nil {
		if limited != nil && limited.exceeded {
			return nil, "", fmt.Errorf("image exceeds %d bytes", il.maxBytes)
		}
		if errors.Is(err, image.ErrFormat) {
			return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
		}
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	il.logger.Debug("Image decoded",
		"name", name,
		"format", format,
		"width", b.Dx(),
		"height", b.Dy())
	return img, format, nil
}

func (il *ImageLoader) LoadImage(path string) (image.Image, string, error) {
	il.logger.Debug("Loading image", "filepath", path)

	if !IsSupported(path) {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load image: %w", err)
	}
	defer f.Close()

	img, format, err := il.Decode(f, path)
	if err != nil {
		return nil, "", err
	}

	b := img.Bounds()
	il.logger.Info("Image loaded successfully",
		"filepath", path,
		"format", format,
		"width", b.Dx(),
		"height", b.Dy())
	return img, format, nil
}

// SaveImage encodes img in the format implied by the extension of path.
// WebP is decode-only.
func (il *ImageLoader) SaveImage(img image.Image, path string) error {
	il.logger.Debug("Saving image", "filepath", path)

	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("cannot save empty image")
	}
	format, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	if !ok || format == "webp" {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}

	if err := Encode(f, img, format); err != nil {
		f.Close()
		return fmt.Errorf("failed to save image: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}

	b := img.Bounds()
	il.logger.Info("Image saved successfully",
		"filepath", path,
		"width", b.Dx(),
		"height", b.Dy())
	return nil
}

// Encode writes img as format ("png", "jpeg", "bmp" or "tiff").
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// IsSupported reports whether path has an allowed image extension.
func IsSupported(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// SupportedExtensions lists the allowed extensions for file dialogs.
func SupportedExtensions() []string {
	return []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp"}
}

func GetSupportedFormats() []string {
	return []string{"JPEG", "PNG", "TIFF", "BMP", "WebP"}
}

var errTooLarge = errors.New("image too large")

// limitedReader fails with errTooLarge once more than n bytes are available.
type limitedReader struct {
	r        io.Reader
	n        int64
	exceeded bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.n <= 0 {
		var extra [1]byte
		if n, _ := l.r.Read(extra[:]); n == 0 {
			return 0, io.EOF
		}
		l.exceeded = true
		return 0, errTooLarge
	}
	if int64(len(p)) > l.n {
		p = p[:l.n]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	return n, err
}
