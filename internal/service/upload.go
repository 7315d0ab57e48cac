package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"chat_relay/internal/config"
	"chat_relay/pkg/logger"
)

// S3API is the slice of the S3 client the upload service uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// UploadResult mirrors the response the chat frontend expects before it
// sends a file frame referencing FileURL.
type UploadResult struct {
	FileURL  string `json:"fileUrl"`
	Filename string `json:"filename"`
	Size     int    `json:"size"`
	Type     string `json:"type"`
	Width    *int   `json:"width"`
	Height   *int   `json:"height"`
	Message  string `json:"message"`
}

type UploadService interface {
	Upload(ctx context.Context, filename string, content []byte) (*UploadResult, error)
}

type uploadService struct {
	client S3API
	bucket string
	region string
	log    logger.Logger
}

func NewUploadService(client S3API, cfg config.StorageConfig, log logger.Logger) UploadService {
	return &uploadService{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		log:    log,
	}
}

func (s *uploadService) Upload(ctx context.Context, filename string, content []byte) (*UploadResult, error) {
	key := "uploads/" + filename

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
		ACL:    types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		s.log.Error("Failed to upload file", "filename", filename, "error", err)
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}

	fileType := classifyFile(filename)
	width, height := probeDimensions(fileType, content)

	return &UploadResult{
		FileURL:  fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key),
		Filename: filename,
		Size:     len(content),
		Type:     fileType,
		Width:    width,
		Height:   height,
		Message:  "File uploaded successfully",
	}, nil
}

func classifyFile(filename string) string {
	mimeType := mime.TypeByExtension(filepath.Ext(filename))
	if mimeType == "" {
		return "unknown"
	}
	return strings.SplitN(mimeType, "/", 2)[0]
}

// probeDimensions reads image headers for real dimensions; documents and
// videos get fixed render boxes the client lays out with.
func probeDimensions(fileType string, content []byte) (width, height *int) {
	switch fileType {
	case "application":
		return intPtr(500), intPtr(250)
	case "video":
		return intPtr(300), intPtr(300)
	case "image":
		cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
		if err != nil {
			return nil, nil
		}
		return intPtr(cfg.Width), intPtr(cfg.Height)
	default:
		return nil, nil
	}
}

func intPtr(v int) *int {
	return &v
}
