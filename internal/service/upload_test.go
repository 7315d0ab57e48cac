package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat_relay/internal/config"
	"chat_relay/pkg/logger"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	err    error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &s3.PutObjectOutput{}, nil
}

func newUploadFixture() (*fakeS3, UploadService) {
	s3Fake := &fakeS3{}
	svc := NewUploadService(s3Fake, config.StorageConfig{
		Bucket: "chat-media",
		Region: "ap-south-1",
	}, logger.NewNop())
	return s3Fake, svc
}

func TestUploadImageProbesDimensions(t *testing.T) {
	s3Fake, svc := newUploadFixture()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))))

	result, err := svc.Upload(context.Background(), "pic.png", buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, "https://chat-media.s3.ap-south-1.amazonaws.com/uploads/pic.png", result.FileURL)
	assert.Equal(t, "image", result.Type)
	assert.Equal(t, buf.Len(), result.Size)
	require.NotNil(t, result.Width)
	require.NotNil(t, result.Height)
	assert.Equal(t, 4, *result.Width)
	assert.Equal(t, 3, *result.Height)

	require.Len(t, s3Fake.inputs, 1)
	assert.Equal(t, "uploads/pic.png", *s3Fake.inputs[0].Key)
	assert.Equal(t, "chat-media", *s3Fake.inputs[0].Bucket)
}

func TestUploadDocumentGetsFixedRenderBox(t *testing.T) {
	_, svc := newUploadFixture()

	result, err := svc.Upload(context.Background(), "contract.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)

	assert.Equal(t, "application", result.Type)
	require.NotNil(t, result.Width)
	require.NotNil(t, result.Height)
	assert.Equal(t, 500, *result.Width)
	assert.Equal(t, 250, *result.Height)
}

func TestUploadUnknownExtension(t *testing.T) {
	_, svc := newUploadFixture()

	result, err := svc.Upload(context.Background(), "blob.xyz9", []byte{0x01})
	require.NoError(t, err)

	assert.Equal(t, "unknown", result.Type)
	assert.Nil(t, result.Width)
	assert.Nil(t, result.Height)
}

func TestUploadPropagatesStorageFailure(t *testing.T) {
	s3Fake, svc := newUploadFixture()
	s3Fake.err = assert.AnError

	_, err := svc.Upload(context.Background(), "pic.png", []byte{0x01})
	assert.Error(t, err)
}
