package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"

	"github.com/salesquery/salesquery/internal/storage"
)

func TestPutUsesPrefixAndNormalizedKey(t *testing.T) {
	fake := &fakeBucket{}
	store := newStore(fake, "bucket-a", "salesquery/prod")

	info, err := store.Put(context.Background(), "/datasets/orders/orders.parquet", bytes.NewBufferString("abc"), 3, storage.PutOptions{ContentType: storage.ContentTypeParquet})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if fake.lastBucket != "bucket-a" {
		t.Fatalf("bucket = %q", fake.lastBucket)
	}
	if fake.lastKey != "salesquery/prod/datasets/orders/orders.parquet" {
		t.Fatalf("key = %q", fake.lastKey)
	}
	if fake.lastContentType != storage.ContentTypeParquet {
		t.Fatalf("content type = %q", fake.lastContentType)
	}
	if info.Size != 3 {
		t.Fatalf("Size = %d", info.Size)
	}
}

func TestPutRejectsPathTraversal(t *testing.T) {
	store := newStore(&fakeBucket{}, "bucket-a", "")
	_, err := store.Put(context.Background(), "../secrets.txt", bytes.NewBufferString("x"), 1, storage.PutOptions{})
	if err == nil {
		t.Fatal("expected path traversal validation error")
	}
}

func TestStatMapsMissingObject(t *testing.T) {
	fake := &fakeBucket{statErr: minio.ErrorResponse{Code: "NoSuchKey"}}
	store := newStore(fake, "bucket-a", "")
	_, err := store.Stat(context.Background(), "raw/sales.csv")
	if !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Stat() error = %v, want ErrObjectNotFound", err)
	}
}

func TestEnsureBucketCreatesWhenMissing(t *testing.T) {
	fake := &fakeBucket{bucketExists: false}
	store := newStore(fake, "bucket-a", "")
	if err := store.ensureBucket(context.Background(), "us-east-1"); err != nil {
		t.Fatalf("ensureBucket() error = %v", err)
	}
	if !fake.madeBucket {
		t.Fatal("expected MakeBucket to be called")
	}
}

func TestHealthCheckFailsWhenBucketMissing(t *testing.T) {
	store := newStore(&fakeBucket{bucketExists: false}, "bucket-a", "")
	if err := store.HealthCheck(context.Background()); err == nil {
		t.Fatal("HealthCheck() expected error for missing bucket")
	}
	healthy := newStore(&fakeBucket{bucketExists: true}, "bucket-a", "")
	if err := healthy.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
}

func TestDeleteIgnoresMissingObject(t *testing.T) {
	fake := &fakeBucket{removeErr: minio.ErrorResponse{Code: "NoSuchKey"}}
	store := newStore(fake, "bucket-a", "")
	if err := store.Delete(context.Background(), "missing/file.parquet"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestParseEndpoint(t *testing.T) {
	endpoint, secure, err := parseEndpoint("https://minio.example.com", false)
	if err != nil {
		t.Fatalf("parseEndpoint() error = %v", err)
	}
	if endpoint != "minio.example.com" || !secure {
		t.Fatalf("endpoint/secure = %q/%v", endpoint, secure)
	}
	endpoint, secure, err = parseEndpoint("localhost:9000", false)
	if err != nil {
		t.Fatalf("parseEndpoint() error = %v", err)
	}
	if endpoint != "localhost:9000" || secure {
		t.Fatalf("endpoint/secure = %q/%v", endpoint, secure)
	}
	if _, _, err := parseEndpoint(" ", false); err == nil {
		t.Fatal("parseEndpoint() expected error for blank endpoint")
	}
}

type fakeBucket struct {
	lastBucket      string
	lastKey         string
	lastContentType string
	bucketExists    bool
	madeBucket      bool
	statErr         error
	removeErr       error
}

func (f *fakeBucket) PutObject(_ context.Context, bucket, key string, reader io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.lastBucket = bucket
	f.lastKey = key
	f.lastContentType = opts.ContentType
	body, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: int64(len(body)), ETag: "etag"}, nil
}

func (f *fakeBucket) GetObject(context.Context, string, string, minio.GetObjectOptions) (*minio.Object, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBucket) StatObject(_ context.Context, _ string, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	if f.statErr != nil {
		return minio.ObjectInfo{}, f.statErr
	}
	return minio.ObjectInfo{Key: key, Size: 1}, nil
}

func (f *fakeBucket) RemoveObject(context.Context, string, string, minio.RemoveObjectOptions) error {
	return f.removeErr
}

func (f *fakeBucket) BucketExists(context.Context, string) (bool, error) {
	return f.bucketExists, nil
}

func (f *fakeBucket) MakeBucket(context.Context, string, minio.MakeBucketOptions) error {
	f.madeBucket = true
	return nil
}
