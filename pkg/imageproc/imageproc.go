// Package imageproc validates uploaded artwork and renders its web derivatives.
package imageproc

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

// ContentType of every derivative produced by the processor.
const ContentType = "image/webp"

const maxPixels = 50_000_000

var (
	// ErrNotAnImage indicates the payload is not one of the accepted image types.
	ErrNotAnImage = errors.New("file is not a supported image")
	// ErrImageTooSmall indicates the image is below the minimum dimension.
	ErrImageTooSmall = errors.New("image dimensions are too small")
	// ErrImageTooLarge indicates the image exceeds the pixel budget.
	ErrImageTooLarge = errors.New("image dimensions are too large")
	// ErrImageCorrupt indicates the image header looked valid but decoding failed.
	ErrImageCorrupt = errors.New("image could not be decoded")
)

var allowedTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// Options tunes derivative sizes.
type Options struct {
	MinDimension   int
	FullWidth      int
	MediumWidth    int
	ThumbnailWidth int
	Quality        float32
}

// Result holds the validated dimensions and encoded derivatives of one image.
type Result struct {
	Width     int
	Height    int
	Format    string
	MimeType  string
	Checksum  string
	Full      []byte
	Medium    []byte
	Thumbnail []byte
}

// Processor turns raw uploads into web-ready derivatives.
type Processor struct {
	opts Options
}

// New builds a processor, filling unset options with defaults.
func New(opts Options) *Processor {
	if opts.MinDimension <= 0 {
		opts.MinDimension = 64
	}
	if opts.FullWidth <= 0 {
		opts.FullWidth = 2560
	}
	if opts.MediumWidth <= 0 {
		opts.MediumWidth = 1024
	}
	if opts.ThumbnailWidth <= 0 {
		opts.ThumbnailWidth = 320
	}
	if opts.Quality <= 0 {
		opts.Quality = 85
	}
	return &Processor{opts: opts}
}

// DetectMime sniffs the payload and reports whether it is an accepted image type.
func DetectMime(data []byte) (string, bool) {
	detected := mimetype.Detect(data)
	for _, allowed := range allowedTypes {
		if detected.Is(allowed) {
			return allowed, true
		}
	}
	return detected.String(), false
}

// Checksum identifies the uploaded bytes independently of where they end up stored.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Process validates data and renders full, medium and thumbnail derivatives.
func (p *Processor) Process(data []byte) (Result, error) {
	mime, ok := DetectMime(data)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNotAnImage, mime)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrImageCorrupt, err)
	}
	if cfg.Width < p.opts.MinDimension || cfg.Height < p.opts.MinDimension {
		return Result{}, fmt.Errorf("%w: %dx%d, minimum %d", ErrImageTooSmall, cfg.Width, cfg.Height, p.opts.MinDimension)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return Result{}, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrImageCorrupt, err)
	}

	full, err := p.render(img, p.opts.FullWidth)
	if err != nil {
		return Result{}, err
	}
	medium, err := p.render(img, p.opts.MediumWidth)
	if err != nil {
		return Result{}, err
	}
	thumbnail, err := p.render(img, p.opts.ThumbnailWidth)
	if err != nil {
		return Result{}, err
	}

	bounds := img.Bounds()

	return Result{
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Format:    format,
		MimeType:  mime,
		Checksum:  Checksum(data),
		Full:      full,
		Medium:    medium,
		Thumbnail: thumbnail,
	}, nil
}

func (p *Processor) render(img image.Image, width int) ([]byte, error) {
	resized := img
	if img.Bounds().Dx() > width {
		resized = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, resized, &webp.Options{Lossless: false, Quality: p.opts.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode derivative: %w", err)
	}
	return buf.Bytes(), nil
}
