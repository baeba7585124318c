// Export of the edited image as PNG or a single-page PDF.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// PageWidthMM is the width of the exported PDF page.
const PageWidthMM = 210.0

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown export format")

// Format is an export file type.
type Format string

const (
	PNGFormat Format = "png"
	PDFFormat Format = "pdf"
)

// ParseFormat parses "png" or "pdf"; empty selects png.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return PNGFormat, nil
	case "pdf":
		return PDFFormat, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	if f == PDFFormat {
		return "application/pdf"
	}
	return "image/png"
}

// Filename is the download name, e.g. edited_image.pdf.
func (f Format) Filename() string {
	return "edited_image." + string(f)
}

// Write encodes img in format f.
func Write(w io.Writer, img image.Image, f Format) error {
	switch f {
	case PNGFormat:
		return PNG(w, img)
	case PDFFormat:
		return PDF(w, img)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

// PNG encodes img losslessly.
func PNG(w io.Writer, img image.Image) error {
	if err := checkImage(img); err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// PDF writes a one-page document PageWidthMM wide whose height keeps the
// image's aspect ratio. The image fills the page.
func PDF(w io.Writer, img image.Image) error {
	if err := checkImage(img); err != nil {
		return err
	}
	b := img.Bounds()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}

	pageW := PageWidthMM
	pageH := PageWidthMM * float64(b.Dy()) / float64(b.Dx())

	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "mm",
		Size:    fpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetCreator("prompt-image-editor", false)
	pdf.SetCreationDate(time.Now())
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("edited", opts, &buf)
	pdf.ImageOptions("edited", 0, 0, pageW, pageH, false, opts, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func checkImage(img image.Image) error {
	if img == nil {
		return errors.New("no image to export")
	}
	if img.Bounds().Empty() {
		return errors.New("empty image")
	}
	return nil
}
