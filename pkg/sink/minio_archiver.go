package sink

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type ArchiveOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
}

// MinioArchiver uploads the sink files and the run summary of a finished
// benchmark under a per-run prefix.
type MinioArchiver struct {
	client *minio.Client
	bucket string
}

func NewMinioArchiver(o ArchiveOptions) (*MinioArchiver, error) {
	if o.Bucket == "" {
		o.Bucket = "mq-bench"
	}
	mc, err := minio.New(o.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.AccessKey, o.SecretKey, ""),
		Secure: o.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client for %s: %v", o.Endpoint, err)
	}
	return &MinioArchiver{client: mc, bucket: o.Bucket}, nil
}

func (a *MinioArchiver) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
}

// ObjectKey is the key a local file is stored under for a run.
func ObjectKey(runID, path string) string {
	return runID + "/" + filepath.Base(path)
}

// Archive uploads files and summary concurrently and waits for all of them.
func (a *MinioArchiver) Archive(ctx context.Context, runID string, files []string, summary []byte) error {
	if err := a.ensureBucket(ctx); err != nil {
		return fmt.Errorf("bucket %s: %v", a.bucket, err)
	}
	bg, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		f := f
		bg.Go(func() error {
			key := ObjectKey(runID, f)
			_, err := a.client.FPutObject(ctx, a.bucket, key, f, minio.PutObjectOptions{ContentType: "text/csv"})
			if err != nil {
				return fmt.Errorf("upload %s: %v", f, err)
			}
			log.Info().Str("bucket", a.bucket).Str("key", key).Msg("archived sink file")
			return nil
		})
	}
	bg.Go(func() error {
		key := runID + "/summary.json"
		_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(summary), int64(len(summary)),
			minio.PutObjectOptions{ContentType: "application/json"})
		return err
	})
	return bg.Wait()
}
