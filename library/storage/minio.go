package storage

import (
	"context"
	"io"

	"github.com/Laisky/errors/v2"
	"github.com/minio/minio-go/v7"
)

// minioAPI adapts *minio.Client to objectAPI
type minioAPI struct {
	cli *minio.Client
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}

func (m *minioAPI) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.cli.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (m *minioAPI) Get(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	stat, err := m.cli.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ObjectInfo{}, errors.WithStack(ErrNotFound)
		}

		return nil, ObjectInfo{}, errors.Wrap(err, "stat object")
	}

	obj, err := m.cli.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, errors.Wrap(err, "get object")
	}

	return obj, ObjectInfo{
		Key:         stat.Key,
		Size:        stat.Size,
		ContentType: stat.ContentType,
	}, nil
}

func (m *minioAPI) Remove(ctx context.Context, bucket, key string) error {
	err := m.cli.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
	if err != nil && isNoSuchKey(err) {
		return errors.WithStack(ErrNotFound)
	}

	return err
}

func (m *minioAPI) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	// stops the listing goroutine when returning early
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var keys []string
	for obj := range m.cli.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, "list objects")
		}

		keys = append(keys, obj.Key)
	}

	return keys, nil
}

func (m *minioAPI) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := m.cli.BucketExists(ctx, bucket)
	if err != nil {
		return errors.Wrapf(err, "check bucket %q", bucket)
	}
	if exists {
		return nil
	}

	if err = m.cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrapf(err, "make bucket %q", bucket)
	}

	return nil
}
