// Package images stores product images selected in the update form.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Upload is a file selected by the user.
// Data is nil when the file was too large to be read.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// Store persists an upload and returns the image reference sent to the catalog.
type Store interface {
	Put(ctx context.Context, upload Upload) (string, error)
}

// FilenameStore keeps no file and uses the file name as the image reference.
type FilenameStore struct{}

func (FilenameStore) Put(_ context.Context, upload Upload) (string, error) {
	if upload.Filename == "" {
		return "", errors.New("upload has no file name")
	}
	return path.Base(upload.Filename), nil
}

// uploaderAPI is the part of the Cloudinary upload API the store uses.
type uploaderAPI interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryStore uploads images to Cloudinary and returns their secure URL.
type CloudinaryStore struct {
	api    uploaderAPI
	folder string
}

// NewCloudinaryStore creates a store uploading into folder.
func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return &CloudinaryStore{api: &cld.Upload, folder: folder}, nil
}

func (s *CloudinaryStore) Put(ctx context.Context, upload Upload) (string, error) {
	if len(upload.Data) == 0 {
		return "", errors.New("upload has no content")
	}
	unique := true
	overwrite := false
	params := uploader.UploadParams{
		Folder:         s.folder,
		ResourceType:   "image",
		UniqueFilename: &unique,
		Overwrite:      &overwrite,
	}
	if name := publicID(upload.Filename); name != "" {
		params.PublicID = name
	}

	result, err := s.api.Upload(ctx, bytes.NewReader(upload.Data), params)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload image: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", errors.New("upload successful but no URL returned")
	}
	return result.SecureURL, nil
}

// publicID strips the directory and extension from a file name.
func publicID(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
