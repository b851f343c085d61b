// Package file stores uploaded images on local disk or in S3-compatible
// object storage. Images are named by content hash, so re-uploading the
// same picture reuses the stored object.
package file

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"slices"
	"strings"
)

var (
	ErrInvalidConfig      = errors.New("file: invalid configuration")
	ErrInvalidPath        = errors.New("file: invalid path")
	ErrFileTooLarge       = errors.New("file: size exceeds limit")
	ErrMIMETypeNotAllowed = errors.New("file: MIME type not allowed")
	ErrBucketNotFound     = errors.New("file: bucket not found")
	ErrAccessDenied       = errors.New("file: access denied")
	ErrUnavailable        = errors.New("file: storage unavailable")
)

// File describes a stored object.
type File struct {
	RelativePath string
	MIMEType     string
	Size         int64
}

// Storage is implemented by LocalStorage and S3Storage.
type Storage interface {
	// Put writes r to path, replacing any existing object.
	Put(ctx context.Context, path string, r io.Reader, mimeType string) (*File, error)
	// URL returns the public URL of a stored path.
	URL(path string) string
}

// ImageMIMETypes are the sniffed content types SaveImage accepts.
var ImageMIMETypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// SaveImage stores the upload under dir if it is at most maxBytes long and
// its content sniffs as one of ImageMIMETypes. The file name and extension
// of the upload are ignored.
func SaveImage(ctx context.Context, s Storage, fh *multipart.FileHeader, dir string, maxBytes int64) (*File, error) {
	if fh == nil {
		return nil, fmt.Errorf("%w: no file", ErrInvalidPath)
	}
	if fh.Size > maxBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, fh.Size, maxBytes)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("file: open upload: %w", err)
	}
	defer func() { _ = src.Close() }()

	// The declared size comes from the client; count the bytes.
	data, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("file: read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, maxBytes)
	}

	mimeType := DetectMIMEType(data)
	if !slices.Contains(ImageMIMETypes, mimeType) {
		return nil, fmt.Errorf("%w: %s", ErrMIMETypeNotAllowed, mimeType)
	}

	sum := sha256.Sum256(data)
	name := hex.EncodeToString(sum[:16]) + imageExtensions[mimeType]
	return s.Put(ctx, path.Join(dir, name), bytes.NewReader(data), mimeType)
}

// DetectMIMEType sniffs content without parameters such as charset.
func DetectMIMEType(content []byte) string {
	mimeType, _, _ := strings.Cut(http.DetectContentType(content), ";")
	return mimeType
}

// cleanKey normalizes a storage path to a slash-separated relative key.
func cleanKey(p string) (string, error) {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return "", ErrInvalidPath
	}
	return p, nil
}
