package storage

import (
	"context"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations replenishment
// needs: reading source files and publishing exports.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	UploadObject(ctx context.Context, key string, data []byte, contentType string) error
}

// Location is a parsed s3://bucket/key address.
type Location struct {
	Bucket string
	Key    string
}

// ParseLocation splits an s3:// location. The bucket may be omitted
// ("s3:///key"), in which case the client's default bucket is used.
func ParseLocation(location string) (Location, error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return Location{}, errors.Errorf("not an s3 location: %q", location)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return Location{}, errors.Errorf("s3 location %q has no object key", location)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// Fetcher serves s3:// source locations.
type Fetcher struct {
	store ObjectStorage
}

func NewFetcher(store ObjectStorage) *Fetcher {
	return &Fetcher{store: store}
}

func (f *Fetcher) Fetch(ctx context.Context, location string) (string, []byte, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return "", nil, err
	}
	data, err := f.store.GetObject(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return "", nil, errors.Wrapf(err, "fetch %s", location)
	}
	return path.Base(loc.Key), data, nil
}
