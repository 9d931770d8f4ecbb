// Package remotefs lets the ingest controller pull candidate video files
// from an S3-compatible bucket instead of (or alongside) a local
// directory. Library syncing to object storage is common enough in video
// libraries that this is worth keeping as an optional source, but it must
// never be on the critical path for the common case of a local disk scan.
package remotefs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/cockroachdb/errors"
)

// Source enumerates video objects under a remote library and stages one
// locally on demand, so the ingest controller can hand its path to a
// decoder exactly as it would a local file.
type Source interface {
	// List returns every object key under the configured prefix.
	List(ctx context.Context) ([]string, error)
	// Stage downloads key into a local temp file and returns its path.
	// The caller owns the returned file and must remove it when done.
	Stage(ctx context.Context, key string) (string, error)
}

// Options configures an S3Source.
type Options struct {
	Bucket string
	Prefix string
	Region string
}

// S3Source is the default Source, backed by aws-sdk-go.
type S3Source struct {
	opts       Options
	client     *s3.S3
	downloader *s3manager.Downloader
}

// NewS3Source constructs an S3Source for opts. It fails fast if a session
// cannot be established, rather than deferring the error to the first
// List/Stage call.
func NewS3Source(opts Options) (*S3Source, error) {
	if opts.Bucket == "" {
		return nil, errors.New("remotefs: bucket is required")
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(opts.Region)})
	if err != nil {
		return nil, errors.Wrap(err, "remotefs: create aws session")
	}
	return &S3Source{
		opts:       opts,
		client:     s3.New(sess),
		downloader: s3manager.NewDownloader(sess),
	}, nil
}

// List returns every object key under the bucket/prefix, paginating
// through ListObjectsV2 as needed.
func (s *S3Source) List(ctx context.Context) ([]string, error) {
	var keys []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.opts.Bucket),
		Prefix: aws.String(s.opts.Prefix),
	}
	err := s.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, last bool) bool {
		for _, obj := range page.Contents {
			if obj.Key != nil && !strings.HasSuffix(*obj.Key, "/") {
				keys = append(keys, *obj.Key)
			}
		}
		return true
	})
	if err != nil {
		return nil, errors.Wrapf(err, "remotefs: list objects under s3://%s/%s", s.opts.Bucket, s.opts.Prefix)
	}
	return keys, nil
}

// Stage downloads key to a local temp file named after its base name, so
// the extension-based ingest filter still applies downstream.
func (s *S3Source) Stage(ctx context.Context, key string) (string, error) {
	dir, err := os.MkdirTemp("", "viddup-remotefs-*")
	if err != nil {
		return "", errors.Wrap(err, "remotefs: create staging dir")
	}
	localPath := filepath.Join(dir, filepath.Base(key))

	f, err := os.Create(localPath)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", errors.Wrapf(err, "remotefs: create staging file for %s", key)
	}
	defer f.Close()

	_, err = s.downloader.DownloadWithContext(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", errors.Wrapf(err, "remotefs: download s3://%s/%s", s.opts.Bucket, key)
	}
	return localPath, nil
}

// Cleanup removes the temp directory staged for localPath, as returned by
// Stage. Kept as a free function (rather than a Closer returned from
// Stage) so Source stays a two-method interface callers can fake easily
// in tests.
func Cleanup(localPath string) error {
	return os.RemoveAll(filepath.Dir(localPath))
}
