package mongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/electrix/tracker/internal/core/domain"
)

const publicObjectPath = "/storage/v1/object/public/"

// Files stores objects in GridFS, one bucket per storage bucket name. The
// object path is the GridFS file id.
type Files struct {
	db *mongo.Database
}

// Object is an open public object.
type Object struct {
	io.ReadCloser
	ContentType string
	Size        int64
}

// Open streams bucket/path. Unknown objects yield domain.ErrNotFound.
func (f *Files) Open(ctx context.Context, bucket, path string) (*Object, error) {
	b, err := f.bucket(bucket)
	if err != nil {
		return nil, err
	}
	if err := b.SetReadDeadline(deadline(ctx)); err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}

	stream, err := b.OpenDownloadStream(path)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, fmt.Errorf("object %s/%s: %w", bucket, path, domain.ErrNotFound)
		}
		return nil, mapErr("open object", err)
	}

	file := stream.GetFile()
	obj := &Object{ReadCloser: stream, ContentType: "application/octet-stream", Size: file.Length}
	if len(file.Metadata) > 0 {
		if ct, ok := file.Metadata.Lookup("content_type").StringValueOK(); ok && ct != "" {
			obj.ContentType = ct
		}
	}
	return obj, nil
}

func (f *Files) put(ctx context.Context, bucket, path, contentType string, r io.Reader) error {
	b, err := f.bucket(bucket)
	if err != nil {
		return err
	}
	if err := b.SetWriteDeadline(deadline(ctx)); err != nil {
		return fmt.Errorf("upload object: %w", err)
	}

	opts := options.GridFSUpload().SetMetadata(bson.M{"content_type": contentType})
	if err := b.UploadFromStreamWithID(path, path, r, opts); err != nil {
		return mapErr("upload object", err)
	}
	return nil
}

// remove deletes bucket/path. A missing object is already removed.
func (f *Files) remove(ctx context.Context, bucket, path string) error {
	b, err := f.bucket(bucket)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := b.DeleteContext(ctx, path); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return mapErr("remove object", err)
	}
	return nil
}

func (f *Files) bucket(name string) (*gridfs.Bucket, error) {
	if !validBucket(name) {
		return nil, fmt.Errorf("bucket %q: %w", name, domain.ErrNotFound)
	}
	b, err := gridfs.NewBucket(f.db, options.GridFSBucket().SetName(name))
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", name, err)
	}
	return b, nil
}

func validBucket(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

func deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(defaultTimeout)
}

// Storage implements ports.ObjectStorage on top of Files.
type Storage struct {
	g         *gateway
	files     *Files
	publicURL string
}

func (s *Storage) Upload(ctx context.Context, bucket, path, contentType string, r io.Reader) (_ string, err error) {
	defer observe("storage.upload", time.Now(), &err)
	if err := s.g.requireWriter(ctx, "upload object"); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.files.put(ctx, bucket, path, contentType, r); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Storage) PublicURL(bucket, path string) string {
	return s.prefix(bucket) + path
}

func (s *Storage) PathFromURL(bucket, url string) (string, bool) {
	prefix := s.prefix(bucket)
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

func (s *Storage) Remove(ctx context.Context, bucket, path string) (err error) {
	defer observe("storage.remove", time.Now(), &err)
	if err := s.g.requireWriter(ctx, "remove object"); err != nil {
		return err
	}
	return s.files.remove(ctx, bucket, path)
}

func (s *Storage) prefix(bucket string) string {
	return s.publicURL + publicObjectPath + bucket + "/"
}
