package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/seniku-go-api/internal/models"
	"github.com/noah-isme/seniku-go-api/internal/observability"
	"github.com/noah-isme/seniku-go-api/pkg/imageproc"
)

// ImageStore persists binary objects and returns their public URL.
type ImageStore interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// ImageProcessor validates raw uploads and renders web derivatives.
type ImageProcessor interface {
	Process(data []byte) (imageproc.Result, error)
}

// ImageUpload is a raw file received from a client.
type ImageUpload struct {
	Filename string
	Data     []byte
}

type artworkUploader struct {
	processor ImageProcessor
	store     ImageStore
	logger    zerolog.Logger
}

func newArtworkUploader(processor ImageProcessor, store ImageStore, logger zerolog.Logger) *artworkUploader {
	return &artworkUploader{processor: processor, store: store, logger: logger}
}

// upload validates data and stores the three derivatives under bucket/<owner>/<uuid>-<size>.
func (u *artworkUploader) upload(ctx context.Context, bucket string, ownerID uint, data []byte) (models.ImageSet, error) {
	tracer := otel.Tracer("github.com/noah-isme/seniku-go-api/internal/service/images")
	ctx, span := tracer.Start(ctx, "images.upload")
	span.SetAttributes(
		attribute.String("image.bucket", bucket),
		attribute.Int("image.bytes", len(data)),
	)
	defer span.End()

	if u.processor == nil || u.store == nil {
		err := errors.New("image pipeline is not configured")
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline_missing")
		return models.ImageSet{}, err
	}

	result, err := u.processor.Process(data)
	if err != nil {
		observability.UploadsRejected().WithLabelValues(rejectionReason(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "image_rejected")
		return models.ImageSet{}, ErrInvalidImage.Wrap(err)
	}

	base := fmt.Sprintf("%d/%s", ownerID, uuid.NewString())
	set := models.ImageSet{ImageChecksum: result.Checksum}

	targets := []struct {
		suffix string
		data   []byte
		dest   *string
	}{
		{"full", result.Full, &set.ImageURL},
		{"medium", result.Medium, &set.ImageMediumURL},
		{"thumb", result.Thumbnail, &set.ImageThumbnailURL},
	}

	for _, target := range targets {
		url, err := u.store.Put(ctx, bucket, base+"-"+target.suffix+".webp", target.data, imageproc.ContentType)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "store_failed")
			u.discard(ctx, set)
			return models.ImageSet{}, fmt.Errorf("failed to store image: %w", err)
		}
		*target.dest = url
	}

	span.SetAttributes(
		attribute.Int("image.width", result.Width),
		attribute.Int("image.height", result.Height),
	)
	return set, nil
}

// discard removes stored derivatives. Failures are logged only.
func (u *artworkUploader) discard(ctx context.Context, set models.ImageSet) {
	if u.store == nil {
		return
	}
	for _, url := range []string{set.ImageURL, set.ImageMediumURL, set.ImageThumbnailURL} {
		if url == "" {
			continue
		}
		if err := u.store.Delete(ctx, url); err != nil {
			u.logger.Warn().Err(err).Str("url", url).Msg("failed to delete stored image")
		}
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, imageproc.ErrNotAnImage):
		return "type"
	case errors.Is(err, imageproc.ErrImageTooSmall):
		return "too_small"
	case errors.Is(err, imageproc.ErrImageTooLarge):
		return "too_large"
	case errors.Is(err, imageproc.ErrImageCorrupt):
		return "corrupt"
	default:
		return "other"
	}
}
