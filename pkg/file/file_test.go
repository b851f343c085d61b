package file_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quill/pkg/file"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("photo", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest("POST", "/", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, r.ParseMultipartForm(1<<20))
	t.Cleanup(func() { _ = r.MultipartForm.RemoveAll() })

	return r.MultipartForm.File["photo"][0]
}

func TestDetectMIMEType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "image/png", file.DetectMIMEType(pngHeader))
	assert.Equal(t, "text/plain", file.DetectMIMEType([]byte("just text")))
	assert.Equal(t, "text/html", file.DetectMIMEType([]byte("<html><script>")))
}

func TestLocalStorage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st, err := file.NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)
	ctx := t.Context()

	f, err := st.Put(ctx, "avatars/me.png", bytes.NewReader(pngHeader), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "avatars/me.png", f.RelativePath)
	assert.Equal(t, int64(len(pngHeader)), f.Size)
	assert.Equal(t, "/uploads/avatars/me.png", st.URL(f.RelativePath))

	data, err := os.ReadFile(filepath.Join(dir, "avatars", "me.png"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	t.Run("paths stay inside the base directory", func(t *testing.T) {
		f, err := st.Put(ctx, "../../escape.png", bytes.NewReader(pngHeader), "image/png")
		require.NoError(t, err)
		assert.Equal(t, "escape.png", f.RelativePath)
		assert.FileExists(t, filepath.Join(dir, "escape.png"))

		_, err = st.Put(ctx, "/", bytes.NewReader(nil), "image/png")
		assert.ErrorIs(t, err, file.ErrInvalidPath)
	})

	t.Run("no temp files left", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Join(dir, "avatars"))
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, strings.HasPrefix(e.Name(), ".upload-"), e.Name())
		}
	})
}

func TestLocalStorageCancelled(t *testing.T) {
	t.Parallel()

	st, err := file.NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = st.Put(ctx, "me.png", bytes.NewReader(pngHeader), "image/png")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveImage(t *testing.T) {
	t.Parallel()

	st, err := file.NewLocalStorage(t.TempDir(), "/uploads/")
	require.NoError(t, err)
	ctx := t.Context()

	f, err := file.SaveImage(ctx, st, fileHeader(t, "Me.JPEG", pngHeader), "avatars", 1<<20)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(f.RelativePath, "avatars/"))
	assert.True(t, strings.HasSuffix(f.RelativePath, ".png"), "extension follows the content")
	assert.Equal(t, "image/png", f.MIMEType)

	again, err := file.SaveImage(ctx, st, fileHeader(t, "other.png", pngHeader), "avatars", 1<<20)
	require.NoError(t, err)
	assert.Equal(t, f.RelativePath, again.RelativePath)

	tests := []struct {
		name    string
		content []byte
		max     int64
		want    error
	}{
		{"script", []byte("<script>alert(1)</script>"), 1 << 20, file.ErrMIMETypeNotAllowed},
		{"text", []byte("hello"), 1 << 20, file.ErrMIMETypeNotAllowed},
		{"too large", pngHeader, 8, file.ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := file.SaveImage(ctx, st, fileHeader(t, "me.png", tt.content), "avatars", tt.max)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = file.SaveImage(ctx, st, nil, "avatars", 1<<20)
	assert.ErrorIs(t, err, file.ErrInvalidPath)
}

func TestNew(t *testing.T) {
	t.Parallel()

	st, err := file.New(t.Context(), file.Config{Driver: "local", LocalDir: t.TempDir(), LocalURL: "/uploads/"})
	require.NoError(t, err)
	assert.IsType(t, &file.LocalStorage{}, st)

	_, err = file.New(t.Context(), file.Config{Driver: "ftp"})
	assert.ErrorIs(t, err, file.ErrInvalidConfig)

	_, err = file.New(t.Context(), file.Config{Driver: "s3"})
	assert.ErrorIs(t, err, file.ErrInvalidConfig)
}

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(in.Body); err != nil {
		return nil, err
	}
	f.objects[*in.Key] = buf.Bytes()
	f.types[*in.Key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func TestS3Storage(t *testing.T) {
	t.Parallel()

	client := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	st, err := file.NewS3Storage(t.Context(), file.S3Config{Bucket: "quill", Region: "eu-west-1"}, file.WithS3Client(client))
	require.NoError(t, err)
	ctx := t.Context()

	f, err := file.SaveImage(ctx, st, fileHeader(t, "me.png", pngHeader), "avatars", 1<<20)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, client.objects[f.RelativePath])
	assert.Equal(t, "image/png", client.types[f.RelativePath])
	assert.Equal(t, "https://quill.s3.eu-west-1.amazonaws.com/"+f.RelativePath, st.URL(f.RelativePath))

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, file.ErrAccessDenied},
		{"missing bucket", &smithy.GenericAPIError{Code: "NoSuchBucket"}, file.ErrBucketNotFound},
		{"slow down", &smithy.GenericAPIError{Code: "SlowDown"}, file.ErrUnavailable},
		{"timeout", context.DeadlineExceeded, file.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeS3{err: tt.err}
			st, err := file.NewS3Storage(ctx, file.S3Config{Bucket: "quill", Region: "eu-west-1"}, file.WithS3Client(client))
			require.NoError(t, err)

			_, err = st.Put(ctx, "avatars/me.png", bytes.NewReader(pngHeader), "image/png")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestS3StorageURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cfg  file.S3Config
		want string
	}{
		{file.S3Config{Bucket: "quill", Region: "us-east-1", Endpoint: "http://localhost:9000/"}, "http://localhost:9000/quill/a.png"},
		{file.S3Config{Bucket: "quill", Region: "us-east-1", BaseURL: "https://cdn.example.com"}, "https://cdn.example.com/a.png"},
	}
	for _, tt := range tests {
		st, err := file.NewS3Storage(t.Context(), tt.cfg, file.WithS3Client(&fakeS3{}))
		require.NoError(t, err)
		assert.Equal(t, tt.want, st.URL("/a.png"))
	}
}
