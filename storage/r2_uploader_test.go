package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectAPI struct {
	put     *s3.PutObjectInput
	body    string
	deleted []string
	err     error
}

func (f *fakeObjectAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = in
	raw, _ := io.ReadAll(in.Body)
	f.body = string(raw)
	return &s3.PutObjectOutput{ETag: aws.String(`"abc123"`)}, nil
}

func (f *fakeObjectAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestR2UploaderUpload(t *testing.T) {
	api := &fakeObjectAPI{}
	u := newR2Uploader(api, "avatars", mustURL(t, "https://cdn.example.com/media/"))

	res, err := u.Upload(context.Background(), "players/g/1/avatar_1.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "players/g/1/avatar_1.png", res.Key)
	assert.Equal(t, "https://cdn.example.com/media/players/g/1/avatar_1.png", res.Location)
	assert.Equal(t, "abc123", res.ETag)
	assert.Equal(t, "avatars", aws.ToString(api.put.Bucket))
	assert.Equal(t, "image/png", aws.ToString(api.put.ContentType))
	assert.Equal(t, "png-bytes", api.body)
}

func TestR2UploaderUploadError(t *testing.T) {
	u := newR2Uploader(&fakeObjectAPI{err: errors.New("boom")}, "avatars", mustURL(t, "https://cdn.example.com"))

	_, err := u.Upload(context.Background(), "k", "image/png", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key: k")
}

func TestR2UploaderDelete(t *testing.T) {
	api := &fakeObjectAPI{}
	u := newR2Uploader(api, "avatars", mustURL(t, "https://cdn.example.com"))

	require.NoError(t, u.Delete(context.Background(), "players/g/1/avatar_1.png"))
	assert.Equal(t, []string{"players/g/1/avatar_1.png"}, api.deleted)
}

func TestGetPublicURL(t *testing.T) {
	cases := []struct {
		base, key, want string
	}{
		{"https://cdn.example.com", "a/b.png", "https://cdn.example.com/a/b.png"},
		{"https://cdn.example.com/", "/a/b.png", "https://cdn.example.com/a/b.png"},
		{"https://cdn.example.com/media", "a.png", "https://cdn.example.com/media/a.png"},
		{"https://cdn.example.com", "", ""},
	}
	for _, tc := range cases {
		u := newR2Uploader(&fakeObjectAPI{}, "b", mustURL(t, tc.base))
		assert.Equal(t, tc.want, u.GetPublicURL(tc.key), tc.base+" + "+tc.key)
	}
}

func TestNewR2UploaderRequiresAllFields(t *testing.T) {
	_, err := NewR2Uploader(context.Background(), R2Config{AccountID: "acc", BucketName: "b"})
	assert.ErrorIs(t, err, ErrInvalidR2Config)
}
