package media

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/amezav/storefront-backend/pkg/config"
	"github.com/amezav/storefront-backend/pkg/db/models"
	"github.com/amezav/storefront-backend/pkg/enums"
	pkgerrors "github.com/amezav/storefront-backend/pkg/errors"
)

type mediaRepository interface {
	Create(ctx context.Context, media *models.Media) (*models.Media, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type gcsSigner interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
}

// Service exposes media-presign semantics.
type Service interface {
	PresignUpload(ctx context.Context, input PresignInput) (*PresignOutput, error)
	SignedDownloadURL(ctx context.Context, id uuid.UUID) (string, error)
}

type service struct {
	repo        mediaRepository
	gcs         gcsSigner
	bucket      string
	uploadTTL   time.Duration
	downloadTTL time.Duration
	maxBytes    int64
}

// NewService constructs a media service backed by the provided repository and GCS signer.
func NewService(repo mediaRepository, gcsClient gcsSigner, cfg config.GCSConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if gcsClient == nil {
		return nil, fmt.Errorf("gcs client required")
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("gcs bucket required")
	}
	if cfg.UploadURLExpiry <= 0 {
		return nil, fmt.Errorf("upload url expiry must be positive")
	}
	return &service{
		repo:        repo,
		gcs:         gcsClient,
		bucket:      cfg.BucketName,
		uploadTTL:   cfg.UploadURLExpiry,
		downloadTTL: cfg.DownloadURLExpiry,
		maxBytes:    int64(cfg.MaxUploadMB) * 1024 * 1024,
	}, nil
}

// PresignInput models the payload required to request an upload URL.
type PresignInput struct {
	Kind      enums.MediaKind `json:"kind" validate:"required"`
	MimeType  string          `json:"mime_type" validate:"required"`
	FileName  string          `json:"file_name" validate:"required"`
	SizeBytes int64           `json:"size_bytes" validate:"required,gt=0"`
}

// PresignOutput contains the data returned to the client after creating a media record.
type PresignOutput struct {
	MediaID      uuid.UUID `json:"media_id"`
	GCSKey       string    `json:"gcs_key"`
	SignedPUTURL string    `json:"signed_put_url"`
	ContentType  string    `json:"content_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

var mimeTypesByKind = map[enums.MediaKind][]string{
	enums.MediaKindProductImage: {"image/png", "image/jpeg", "image/webp", "image/gif"},
	enums.MediaKindVariantImage: {"image/png", "image/jpeg", "image/webp", "image/gif"},
	enums.MediaKindCategoryIcon: {"image/png", "image/jpeg", "image/webp", "image/svg+xml"},
	enums.MediaKindAvatar:       {"image/png", "image/jpeg", "image/webp"},
}

func (s *service) PresignUpload(ctx context.Context, input PresignInput) (*PresignOutput, error) {
	if input.Kind == "" || !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid media kind")
	}

	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_name is required")
	}

	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	if s.maxBytes > 0 && input.SizeBytes > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("size_bytes must be at most %d bytes", s.maxBytes))
	}

	mimeType := strings.ToLower(strings.TrimSpace(input.MimeType))
	if mimeType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mime_type is required")
	}
	if !isAllowedMime(input.Kind, mimeType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mime_type not allowed for media kind")
	}

	mediaID := uuid.New()
	gcsKey := buildGCSKey(input.Kind, mediaID, fileName)

	mediaRow := &models.Media{
		ID:        mediaID,
		Kind:      input.Kind,
		GCSKey:    gcsKey,
		FileName:  fileName,
		MimeType:  mimeType,
		SizeBytes: input.SizeBytes,
	}

	if _, err := s.repo.Create(ctx, mediaRow); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist media row")
	}

	expiresAt := time.Now().Add(s.uploadTTL)
	signedURL, err := s.gcs.SignedURL(s.bucket, gcsKey, mimeType, s.uploadTTL)
	if err != nil {
		_ = s.repo.Delete(ctx, mediaID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}

	return &PresignOutput{
		MediaID:      mediaID,
		GCSKey:       gcsKey,
		SignedPUTURL: signedURL,
		ContentType:  mimeType,
		ExpiresAt:    expiresAt,
	}, nil
}

// SignedDownloadURL returns a short-lived read URL for the stored object. A
// stable public URL on the media row takes precedence when present.
func (s *service) SignedDownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "media not found")
	}
	if row.URL != nil && *row.URL != "" {
		return *row.URL, nil
	}
	url, err := s.gcs.SignedReadURL(s.bucket, row.GCSKey, s.downloadTTL)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign read url")
	}
	return url, nil
}

func isAllowedMime(kind enums.MediaKind, mimeType string) bool {
	allowed, ok := mimeTypesByKind[kind]
	if !ok {
		return false
	}
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, mimeType) {
			return true
		}
	}
	return false
}

func buildGCSKey(kind enums.MediaKind, id uuid.UUID, fileName string) string {
	cleanName := sanitizeFileName(fileName)
	if cleanName == "" {
		cleanName = id.String()
	}
	return fmt.Sprintf("media/%s/%s/%s", kind, id.String(), cleanName)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.TrimSpace(name))
	if clean == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
