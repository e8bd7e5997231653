package label

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"net/url"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// ErrNoSerials is returned when asked to render an empty sheet.
var ErrNoSerials = errors.New("no serials provided")

// Caption is printed under the serial on every label.
const Caption = "Scan for compliance"

// Preview label geometry in pixels.
const (
	previewWidth  = 400
	previewHeight = 200
	previewQR     = 160
	previewInset  = 20
	previewTextX  = 200
)

var (
	captionGray = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
	linkBlue    = color.RGBA{R: 0x00, G: 0x66, B: 0xcc, A: 0xff}
)

// Generator renders labels pointing at a dashboard URL prefix.
type Generator struct {
	prefix  string
	host    string
	layout  Layout
	bold    *opentype.Font
	regular *opentype.Font
}

// NewGenerator creates a generator. The serial is appended, query escaped,
// to prefix, for example "https://dashboard.example.com/lights/?s=".
func NewGenerator(prefix string) (*Generator, error) {
	u, err := url.Parse(prefix)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid label url %q", prefix)
	}

	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load bold font: %w", err)
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load regular font: %w", err)
	}

	return &Generator{
		prefix:  prefix,
		host:    u.Host,
		layout:  DefaultLayout(),
		bold:    bold,
		regular: regular,
	}, nil
}

// URL is the dashboard address encoded in serial's QR code.
func (g *Generator) URL(serial string) string {
	return g.prefix + url.QueryEscape(serial)
}

// Layout is the sheet layout used by PDF.
func (g *Generator) Layout() Layout {
	return g.layout
}

// PNG renders a 400x200 preview label: the QR code on the left, the
// serial, the caption and the dashboard host on the right.
func (g *Generator) PNG(serial string) ([]byte, error) {
	qr, err := qrcode.New(g.URL(serial), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, previewWidth, previewHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	code := qr.Image(previewQR)
	target := image.Rect(previewInset, previewInset, previewInset+previewQR, previewInset+previewQR)
	xdraw.NearestNeighbor.Scale(img, target, code, code.Bounds(), draw.Over, nil)

	if err := g.text(img, g.bold, 18, previewTextX, 50, serial, color.Black); err != nil {
		return nil, err
	}
	if err := g.text(img, g.regular, 14, previewTextX, 85, Caption, captionGray); err != nil {
		return nil, err
	}
	if err := g.text(img, g.regular, 14, previewTextX, 120, g.host, linkBlue); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Base64 renders PNG and encodes it for embedding in JSON.
func (g *Generator) Base64(serial string) (string, error) {
	data, err := g.PNG(serial)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// text draws s with its top edge at y.
func (g *Generator) text(dst draw.Image, f *opentype.Font, size float64, x, y int, s string, c color.Color) error {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return fmt.Errorf("failed to create font face: %w", err)
	}
	defer func() { _ = face.Close() }()

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y) + face.Metrics().Ascent},
	}
	d.DrawString(s)
	return nil
}

// PDF writes a printable sheet of labels for serials to w.
func (g *Generator) PDF(w io.Writer, serials []string) error {
	if len(serials) == 0 {
		return ErrNoSerials
	}

	l := g.layout
	const qrSize = 0.8 * inch

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: l.PageWidth, Ht: l.PageHeight},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("marathon", true)

	page := -1
	for i, serial := range serials {
		p, x, y := l.Position(i)
		if p != page {
			pdf.AddPage()
			page = p
		}

		code, err := qrcode.Encode(g.URL(serial), qrcode.Medium, 256)
		if err != nil {
			return fmt.Errorf("failed to encode qr code for %s: %w", serial, err)
		}
		name := fmt.Sprintf("qr-%d", i)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(code))
		pdf.ImageOptions(name, x+5, y+l.LabelHeight-10-qrSize, qrSize, qrSize, false, opts, 0, "")

		pdf.SetFont("Helvetica", "B", 10)
		pdf.Text(x+qrSize+15, y+25, serial)
		pdf.SetFont("Helvetica", "", 8)
		pdf.Text(x+qrSize+15, y+40, Caption)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}
