package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryFolder is the remote folder every post image lands in.
const CloudinaryFolder = "blog_images"

type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryStore uploads images to Cloudinary.
type CloudinaryStore struct {
	api    uploadAPI
	folder string
}

var _ ImageStore = (*CloudinaryStore)(nil)

// NewCloudinaryStore creates a store from account credentials.
func NewCloudinaryStore(cloudName, apiKey, apiSecret string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary client: %w", err)
	}
	return &CloudinaryStore{api: &cld.Upload, folder: CloudinaryFolder}, nil
}

// Upload streams r to Cloudinary and returns the secure URL.
func (s *CloudinaryStore) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	resp, err := s.api.Upload(ctx, r, uploader.UploadParams{
		Folder:       s.folder,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload %q: %w", filename, err)
	}
	if resp == nil {
		return "", errors.New("cloudinary upload: empty response")
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload %q: %s", filename, resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", errors.New("cloudinary upload: no url returned")
	}
	return resp.SecureURL, nil
}
