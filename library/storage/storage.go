// Package storage keeps uploaded files and their previews in S3 compatible object storage.
//
// An original is stored as `<prefix>/<file_id>`, its previews as
// `<prefix>/<file_id>_<size>`.
package storage

import (
	"context"
	"io"
	"strings"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	gutils "github.com/Laisky/go-utils/v6"
	"github.com/Laisky/zap"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound the object does not exist
var ErrNotFound = errors.New("file not found")

// Options connection settings for the object storage
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Secure    bool
}

// PutOptions metadata for a new file
type PutOptions struct {
	ContentType string
	// Filename overrides the generated file id
	Filename string
}

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// objectAPI is the subset of the minio client the store needs
type objectAPI interface {
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
	Remove(ctx context.Context, bucket, key string) error
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	EnsureBucket(ctx context.Context, bucket string) error
}

// FileStore stores forum files
type FileStore struct {
	api    objectAPI
	bucket string
	prefix string
}

// New connects to the object storage
func New(opt Options) (*FileStore, error) {
	if opt.Endpoint == "" || opt.Bucket == "" {
		return nil, errors.New("s3 endpoint and bucket are required")
	}

	cli, err := minio.New(opt.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opt.AccessKey, opt.SecretKey, ""),
		Secure: opt.Secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new minio client")
	}

	return newFileStore(&minioAPI{cli: cli}, opt.Bucket, opt.Prefix), nil
}

func newFileStore(api objectAPI, bucket, prefix string) *FileStore {
	return &FileStore{
		api:    api,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// EnsureBucket creates the bucket when absent
func (s *FileStore) EnsureBucket(ctx context.Context) error {
	return s.api.EnsureBucket(ctx, s.bucket)
}

// PreviewName returns the file name of a preview
func PreviewName(fileID, size string) string {
	return fileID + "_" + size
}

func (s *FileStore) objectKey(name string) string {
	if s.prefix == "" {
		return name
	}

	return s.prefix + "/" + name
}

// Put stores r and returns the file id
func (s *FileStore) Put(ctx context.Context, r io.Reader, size int64, opt PutOptions) (fileID string, err error) {
	fileID = opt.Filename
	if fileID == "" {
		fileID = gutils.UUID7()
	}

	key := s.objectKey(fileID)
	if err = s.api.Put(ctx, s.bucket, key, r, size, opt.ContentType); err != nil {
		return "", errors.Wrapf(err, "put object %q", key)
	}

	gmw.GetLogger(ctx).Debug("put file",
		zap.String("key", key),
		zap.Int64("size", size))
	return fileID, nil
}

// PutPreview stores the `size` preview of fileID
func (s *FileStore) PutPreview(ctx context.Context,
	fileID, size string, r io.Reader, length int64, contentType string) error {
	if fileID == "" || size == "" {
		return errors.New("empty file id or preview size")
	}

	_, err := s.Put(ctx, r, length, PutOptions{
		ContentType: contentType,
		Filename:    PreviewName(fileID, size),
	})
	return err
}

// Get opens the original (empty size) or a preview
func (s *FileStore) Get(ctx context.Context, fileID, size string) (io.ReadCloser, ObjectInfo, error) {
	name := fileID
	if size != "" {
		name = PreviewName(fileID, size)
	}

	rc, info, err := s.api.Get(ctx, s.bucket, s.objectKey(name))
	if err != nil {
		return nil, ObjectInfo{}, errors.Wrapf(err, "get object %q", name)
	}

	return rc, info, nil
}

// Remove deletes fileID, and all its previews when withPreviews is set.
// Missing objects are ignored.
func (s *FileStore) Remove(ctx context.Context, fileID string, withPreviews bool) error {
	if fileID == "" {
		return errors.New("empty file id")
	}

	keys := []string{s.objectKey(fileID)}
	if withPreviews {
		previews, err := s.api.List(ctx, s.bucket, s.objectKey(PreviewName(fileID, "")))
		if err != nil {
			return errors.Wrapf(err, "list previews of %q", fileID)
		}

		keys = append(keys, previews...)
	}

	for _, key := range keys {
		if err := s.api.Remove(ctx, s.bucket, key); err != nil && !errors.Is(err, ErrNotFound) {
			return errors.Wrapf(err, "remove object %q", key)
		}
	}

	return nil
}
