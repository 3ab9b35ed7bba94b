package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const publicObjectPrefix = "/storage/v1/object/public/"

// BlobStorage talks to the object storage API of the backend.
type BlobStorage struct {
	rest    *RestClient
	baseURL string
	bucket  string
}

func NewBlobStorage(rest *RestClient, baseURL, bucket string) *BlobStorage {
	return &BlobStorage{
		rest:    rest,
		baseURL: strings.TrimRight(baseURL, "/"),
		bucket:  bucket,
	}
}

// Upload stores data under path. Existing objects are not overwritten.
func (s *BlobStorage) Upload(ctx context.Context, path, contentType string, data []byte) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.rest.Do(ctx, RestRequest{
		Method: http.MethodPost,
		Path:   "/storage/v1/object/" + escapePath(s.bucket) + "/" + escapePath(path),
		Body:   data,
		Headers: map[string]string{
			"Content-Type":  contentType,
			"Cache-Control": "max-age=3600",
			"x-upsert":      "false",
		},
		DefaultMessage: "failed to upload image",
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	return nil
}

// Remove deletes the given object paths from the bucket.
func (s *BlobStorage) Remove(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := s.rest.Do(ctx, RestRequest{
		Method:         http.MethodDelete,
		Path:           "/storage/v1/object/" + escapePath(s.bucket),
		Body:           map[string][]string{"prefixes": paths},
		DefaultMessage: "failed to delete image",
	})
	if err != nil {
		return fmt.Errorf("remove %v: %w", paths, err)
	}
	return nil
}

// PublicURL builds <base>/storage/v1/object/public/<bucket>/<path>.
func (s *BlobStorage) PublicURL(path string) string {
	return s.baseURL + publicObjectPrefix + escapePath(s.bucket) + "/" + escapePath(path)
}

// ObjectPath recovers the object path from a public URL. When the input is not
// a URL of this bucket it is returned unchanged and treated as a literal path.
func (s *BlobStorage) ObjectPath(publicURL string) string {
	u, err := url.Parse(publicURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return publicURL
	}
	marker := publicObjectPrefix + s.bucket + "/"
	path := u.EscapedPath()
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}
	idx := strings.Index(path, marker)
	if idx < 0 {
		return publicURL
	}
	objectPath := path[idx+len(marker):]
	if objectPath == "" {
		return publicURL
	}
	return objectPath
}

func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
