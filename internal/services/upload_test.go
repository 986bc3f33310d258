package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"memory-tracker-backend/internal/access"
	"memory-tracker-backend/internal/config"
	"memory-tracker-backend/internal/models"
	"memory-tracker-backend/internal/validator"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	input   *s3.PutObjectInput
	expires time.Duration
	err     error
}

func (f *fakePresigner) PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.input = params
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{
		URL:    "https://memories.s3.eu-west-1.amazonaws.com/" + aws.ToString(params.Key) + "?X-Amz-Signature=abc",
		Method: "PUT",
	}, nil
}

func newUploadService(presigner Presigner, baseURL string) *UploadService {
	families := newFakeFamilies(
		&models.FamilyMember{ID: "f1", PatientID: "p1"},
	)
	return NewUploadService(presigner, access.NewResolver(families, nil), validator.New(), config.AWSConfig{
		Region:        "eu-west-1",
		S3Bucket:      "memories",
		PublicBaseURL: baseURL,
		UploadExpiry:  5 * time.Minute,
	})
}

func TestUploadService_PresignUpload(t *testing.T) {
	presigner := &fakePresigner{}
	svc := newUploadService(presigner, "")

	resp, err := svc.PresignUpload(context.Background(), access.FamilyIdentity{ID: "f1"}, UploadRequest{
		Type:     "photo",
		Filename: "Beach.PNG",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.Key, "p1/"), resp.Key)
	assert.True(t, strings.HasSuffix(resp.Key, ".png"), resp.Key)
	assert.Equal(t, "https://memories.s3.eu-west-1.amazonaws.com/"+resp.Key, resp.ContentURL)
	assert.Equal(t, 300, resp.ExpiresIn)
	assert.Contains(t, resp.UploadURL, "X-Amz-Signature")

	require.NotNil(t, presigner.input)
	assert.Equal(t, "memories", aws.ToString(presigner.input.Bucket))
	assert.Equal(t, "image/jpeg", aws.ToString(presigner.input.ContentType))
	assert.Equal(t, 5*time.Minute, presigner.expires)
}

func TestUploadService_VoiceDefaults(t *testing.T) {
	presigner := &fakePresigner{}
	svc := newUploadService(presigner, "https://cdn.example.com/")

	resp, err := svc.PresignUpload(context.Background(), access.PatientIdentity{ID: "p1"}, UploadRequest{
		Type:     "voice",
		Filename: "recording",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(resp.Key, ".mp3"), resp.Key)
	assert.Equal(t, "https://cdn.example.com/"+resp.Key, resp.ContentURL)
	assert.Equal(t, "audio/mpeg", aws.ToString(presigner.input.ContentType))
}

func TestUploadService_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		identity access.Identity
		req      UploadRequest
		err      error
	}{
		{
			name:     "text_type",
			identity: access.PatientIdentity{ID: "p1"},
			req:      UploadRequest{Type: "text", Filename: "a.txt"},
			err:      ErrInvalidInput,
		},
		{
			name:     "mismatched_content_type",
			identity: access.PatientIdentity{ID: "p1"},
			req:      UploadRequest{Type: "voice", Filename: "a.m4a", ContentType: "image/png"},
			err:      ErrInvalidInput,
		},
		{
			name:     "unlinked_family",
			identity: access.FamilyIdentity{ID: "f9"},
			req:      UploadRequest{Type: "photo", Filename: "a.jpg"},
			err:      access.ErrUnlinkedFamilyMember,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			presigner := &fakePresigner{}
			svc := newUploadService(presigner, "")

			_, err := svc.PresignUpload(ctx, tt.identity, tt.req)
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, presigner.input)
		})
	}
}

func TestUploadService_PresignFailure(t *testing.T) {
	svc := newUploadService(&fakePresigner{err: errors.New("no credentials")}, "")

	_, err := svc.PresignUpload(context.Background(), access.PatientIdentity{ID: "p1"}, UploadRequest{
		Type:     "photo",
		Filename: "a.jpg",
	})
	assert.ErrorIs(t, err, access.ErrStoreUnavailable)
}

func TestUploadExtension(t *testing.T) {
	assert.Equal(t, ".jpeg", uploadExtension(models.MemoryTypePhoto, "x.JPEG"))
	assert.Equal(t, ".jpg", uploadExtension(models.MemoryTypePhoto, "noext"))
	assert.Equal(t, ".jpg", uploadExtension(models.MemoryTypePhoto, "weird.extension"))
	assert.Equal(t, ".m4a", uploadExtension(models.MemoryTypeVoice, "memo.m4a"))
}
