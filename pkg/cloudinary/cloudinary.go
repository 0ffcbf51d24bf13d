package cloudinary

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Service stores artwork images in Cloudinary.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client: cld,
		folder: cfg.Folder,
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Put uploads data under bucket/key inside the configured root folder and returns the secure URL.
func (s *Service) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("refusing to upload empty object")
	}

	folder := joinFolder(s.folder, bucket)
	params := uploader.UploadParams{
		Folder:       folder,
		PublicID:     PublicIDFromKey(key),
		ResourceType: "image",
	}

	result, err := s.client.Upload.Upload(ctx, bytes.NewReader(data), params)
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected upload: %s", result.Error.Message)
	}

	s.logger.Info().
		Str("public_id", result.PublicID).
		Str("content_type", contentType).
		Int("bytes", len(data)).
		Msg("image uploaded to cloudinary")

	return result.SecureURL, nil
}

// Delete removes the asset referenced by a URL previously returned from Put.
func (s *Service) Delete(ctx context.Context, assetURL string) error {
	publicID, err := PublicIDFromURL(assetURL)
	if err != nil {
		return err
	}

	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	s.logger.Info().Str("public_id", publicID).Str("result", result.Result).Msg("image deleted from cloudinary")
	return nil
}

// PublicIDFromKey strips the extension and any character Cloudinary would reject.
func PublicIDFromKey(key string) string {
	base := strings.TrimSuffix(key, path.Ext(key))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	return strings.Trim(base, "-")
}

// PublicIDFromURL recovers the public id ("folder/name") from a delivery URL such as
// https://res.cloudinary.com/demo/image/upload/v1712/seniku/submissions/abc.webp.
func PublicIDFromURL(assetURL string) (string, error) {
	parsed, err := url.Parse(assetURL)
	if err != nil {
		return "", fmt.Errorf("invalid asset url: %w", err)
	}

	_, rest, found := strings.Cut(parsed.Path, "/upload/")
	if !found || rest == "" {
		return "", fmt.Errorf("asset url is not a cloudinary upload url")
	}

	segments := strings.Split(rest, "/")
	if len(segments) > 1 && isVersionSegment(segments[0]) {
		segments = segments[1:]
	}

	joined := strings.Join(segments, "/")
	return strings.TrimSuffix(joined, path.Ext(joined)), nil
}

func isVersionSegment(segment string) bool {
	if len(segment) < 2 || segment[0] != 'v' {
		return false
	}
	for _, r := range segment[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func joinFolder(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.Trim(part, "/")
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, "/")
}
