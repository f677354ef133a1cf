package certificate

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/fjod/go_cart/certshop/internal/domain"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 560

	// maxPixels bounds the rendering surface at roughly 64MB of RGBA.
	maxPixels = 16 * 1024 * 1024

	dataURIPrefix = "data:image/png;base64,"
)

var (
	ErrSurfaceAllocation = errors.New("certificate surface allocation failed")
	ErrInvalidDataURI    = errors.New("invalid certificate data uri")
)

var (
	paper  = color.RGBA{R: 0xfd, G: 0xfb, B: 0xf3, A: 0xff}
	frame  = color.RGBA{R: 0x1f, G: 0x5f, B: 0x3f, A: 0xff}
	accent = color.RGBA{R: 0xc8, G: 0xa4, B: 0x3a, A: 0xff}
	ink    = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
)

// textLine is one centered line; gap is the number of blank lines above it.
type textLine struct {
	text string
	col  color.Color
	gap  int
}

// Certificate is a rendered purchase certificate.
type Certificate struct {
	PNG      []byte
	DataURI  string
	FileName string
}

type Generator struct {
	width  int
	height int
	face   font.Face
}

func NewGenerator(width, height int) *Generator {
	return &Generator{
		width:  width,
		height: height,
		face:   basicfont.Face7x13,
	}
}

// Generate renders the certificate for a purchase. It never blocks on I/O.
func (g *Generator) Generate(p domain.PurchaseRecord, issuer string) (*Certificate, error) {
	img, err := g.surface()
	if err != nil {
		return nil, err
	}

	draw.Draw(img, img.Bounds(), image.NewUniform(paper), image.Point{}, draw.Src)
	g.border(img, 12, 6, frame)
	g.border(img, 24, 2, accent)

	lines := []textLine{
		{"CERTIFICATE OF PURCHASE", frame, 0},
		{"This certifies that", ink, 2},
		{issuer, ink, 1},
	}
	if p.BuyerEmail != "" {
		lines = append(lines, textLine{p.BuyerEmail, ink, 0})
	}
	lines = append(lines,
		textLine{"has acquired", ink, 1},
		textLine{fmt.Sprintf("%d %s of %s", p.Quantity, p.Unit, p.Name), frame, 1},
		textLine{"Purchase ID: " + p.ID, ink, 2},
		textLine{"Issued: " + p.Time, ink, 0},
	)

	lineHeight := g.face.Metrics().Height.Ceil() + 6
	y := g.height/4 + lineHeight
	for _, line := range lines {
		y += line.gap * lineHeight
		g.centered(img, line.text, y, line.col)
		y += lineHeight
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode certificate png failed: %w", err)
	}

	return &Certificate{
		PNG:      buf.Bytes(),
		DataURI:  dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()),
		FileName: FileName(p.ID),
	}, nil
}

func (g *Generator) surface() (img *image.RGBA, err error) {
	if g.width <= 0 || g.height <= 0 || g.width*g.height > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrSurfaceAllocation, g.width, g.height)
	}
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("%w: %v", ErrSurfaceAllocation, r)
		}
	}()
	return image.NewRGBA(image.Rect(0, 0, g.width, g.height)), nil
}

func (g *Generator) border(img *image.RGBA, inset, thickness int, c color.Color) {
	src := image.NewUniform(c)
	w, h := g.width, g.height
	rects := []image.Rectangle{
		image.Rect(inset, inset, w-inset, inset+thickness),
		image.Rect(inset, h-inset-thickness, w-inset, h-inset),
		image.Rect(inset, inset, inset+thickness, h-inset),
		image.Rect(w-inset-thickness, inset, w-inset, h-inset),
	}
	for _, r := range rects {
		draw.Draw(img, r, src, image.Point{}, draw.Src)
	}
}

func (g *Generator) centered(img *image.RGBA, text string, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: g.face,
	}
	width := d.MeasureString(text).Ceil()
	x := (g.width - width) / 2
	if x < 0 {
		x = 0
	}
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}

func FileName(purchaseID string) string {
	return fmt.Sprintf("certificate-%s.png", purchaseID)
}

// DecodeDataURI returns the PNG bytes of a stored certificate blob.
func DecodeDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, dataURIPrefix) {
		return nil, ErrInvalidDataURI
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, dataURIPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return data, nil
}
