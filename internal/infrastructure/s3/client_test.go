package s3infra

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockObjects struct{ mock.Mock }

func (m *mockObjects) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	return &s3.PutObjectOutput{}, args.Error(0)
}

func (m *mockObjects) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	return &s3.DeleteObjectOutput{}, args.Error(0)
}

func TestObjectBaseURL(t *testing.T) {
	assert.Equal(t, "https://avatars.s3.eu-west-1.amazonaws.com", objectBaseURL("avatars", "eu-west-1", ""))
	assert.Equal(t, "http://localhost:4566/avatars", objectBaseURL("avatars", "us-east-1", "http://localhost:4566/"))
}

func TestUpload_ReturnsObjectURL(t *testing.T) {
	objs := new(mockObjects)
	s := newStore(objs, "avatars", "https://cdn.test/avatars")
	objs.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Key) == "avatars/user-1-5.png" && aws.ToString(in.ContentType) == "image/png"
	})).Return(nil)

	url, err := s.Upload(context.Background(), "avatars/user-1-5.png", strings.NewReader("img"), 3, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/avatars/avatars/user-1-5.png", url)
	objs.AssertExpectations(t)
}

func TestUpload_Error(t *testing.T) {
	objs := new(mockObjects)
	objs.On("PutObject", mock.Anything, mock.Anything).Return(errors.New("denied"))
	_, err := newStore(objs, "b", "https://x").Upload(context.Background(), "k", strings.NewReader(""), 0, "image/png")
	assert.ErrorContains(t, err, "denied")
}

func TestDeleteURL_IgnoresForeignURL(t *testing.T) {
	objs := new(mockObjects)
	s := newStore(objs, "avatars", "https://cdn.test/avatars")
	require.NoError(t, s.DeleteURL(context.Background(), "https://elsewhere.test/a.png"))
	objs.AssertNotCalled(t, "DeleteObject", mock.Anything, mock.Anything)

	objs.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return aws.ToString(in.Key) == "avatars/old.png"
	})).Return(nil)
	require.NoError(t, s.DeleteURL(context.Background(), "https://cdn.test/avatars/avatars/old.png"))
	objs.AssertExpectations(t)
}
