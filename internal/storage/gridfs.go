package storage

import (
	"context"
	"errors"
	"io"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// GridFSBucket keeps objects in a MongoDB GridFS bucket, one file per key.
type GridFSBucket struct {
	bucket *mongo.GridFSBucket
}

func NewGridFSBucket(bucket *mongo.GridFSBucket) *GridFSBucket {
	return &GridFSBucket{bucket: bucket}
}

func (b *GridFSBucket) Put(ctx context.Context, key string, body io.Reader) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	_, err = b.bucket.UploadFromStream(ctx, key, body)
	return err
}

func (b *GridFSBucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	stream, err := b.bucket.OpenDownloadStreamByName(ctx, key)
	if errors.Is(err, mongo.ErrFileNotFound) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return stream, nil
}
