package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"memory-tracker-backend/internal/access"
	appconfig "memory-tracker-backend/internal/config"
	"memory-tracker-backend/internal/models"
	"memory-tracker-backend/internal/validator"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Presigner signs S3 upload requests
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// UploadService hands out pre-signed URLs for photo and voice assets
type UploadService struct {
	presigner     Presigner
	resolver      *access.Resolver
	validate      *validator.Validator
	bucket        string
	publicBaseURL string
	expiry        time.Duration
}

// NewS3Client builds an S3 client. Static keys and a custom endpoint are
// used when configured, otherwise the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg appconfig.AWSConfig) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewUploadService creates a new upload service
func NewUploadService(
	presigner Presigner,
	resolver *access.Resolver,
	validate *validator.Validator,
	cfg appconfig.AWSConfig,
) *UploadService {
	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.Region)
	}
	return &UploadService{
		presigner:     presigner,
		resolver:      resolver,
		validate:      validate,
		bucket:        cfg.S3Bucket,
		publicBaseURL: baseURL,
		expiry:        cfg.UploadExpiry,
	}
}

// UploadRequest represents a request to get a pre-signed URL
type UploadRequest struct {
	Type        string `json:"type" validate:"required,oneof=photo voice"`
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type"`
}

// UploadResponse represents the response with pre-signed URL. ContentURL
// is the value to store as the memory's content once the upload is done.
type UploadResponse struct {
	UploadURL  string `json:"upload_url"`
	ContentURL string `json:"content_url"`
	Key        string `json:"key"`
	ExpiresIn  int    `json:"expires_in"`
}

// PresignUpload generates a pre-signed URL for uploading an asset into
// the caller's subject folder
func (s *UploadService) PresignUpload(ctx context.Context, identity access.Identity, req UploadRequest) (*UploadResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, invalid(err)
	}

	memoryType := models.MemoryType(req.Type)
	contentType, err := uploadContentType(memoryType, req.ContentType)
	if err != nil {
		return nil, err
	}

	subjectID, err := s.resolver.ResolveSubject(ctx, identity)
	if err != nil {
		return nil, err
	}

	// S3 key: {subject_id}/{uuid}{ext}
	key := fmt.Sprintf("%s/%s%s", subjectID, uuid.New().String(), uploadExtension(memoryType, req.Filename))

	request, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.expiry
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate pre-signed URL: %w", access.ErrStoreUnavailable, err)
	}

	return &UploadResponse{
		UploadURL:  request.URL,
		ContentURL: s.publicBaseURL + "/" + key,
		Key:        key,
		ExpiresIn:  int(s.expiry.Seconds()),
	}, nil
}

func uploadContentType(memoryType models.MemoryType, contentType string) (string, error) {
	prefix := "image/"
	fallback := "image/jpeg"
	if memoryType == models.MemoryTypeVoice {
		prefix = "audio/"
		fallback = "audio/mpeg"
	}
	if contentType == "" {
		return fallback, nil
	}
	if !strings.HasPrefix(contentType, prefix) {
		return "", invalid(errors.New("content_type: does not match the memory type"))
	}
	return contentType, nil
}

func uploadExtension(memoryType models.MemoryType, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 1 && len(ext) <= 6 && !strings.ContainsAny(ext[1:], "./\\") {
		return ext
	}
	if memoryType == models.MemoryTypeVoice {
		return ".mp3"
	}
	return ".jpg"
}
