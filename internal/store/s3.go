package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"mantis/internal/mantis"
)

// S3Options configure an S3Store. Region and static credentials are
// optional; the SDK's default chain is used when they are empty.
type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store keeps packed bundles in an S3 bucket, optionally under a key
// prefix. Uploads and downloads go through the transfer managers so large
// bundles stream in parts.
type S3Store struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	bucket     string
	prefix     string
}

var _ mantis.ObjectStore = (*S3Store)(nil)

// NewS3Store creates an S3-backed store and verifies the bucket is
// reachable.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, mantis.Tag(mantis.ErrInput, fmt.Errorf("s3 bucket name is required"))
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	st := &S3Store{
		client:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
		bucket:     opts.Bucket,
		prefix:     strings.TrimSuffix(opts.Prefix, "/"),
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(opts.Bucket)}); err != nil {
		return nil, mantis.Tag(mantis.ErrTransient, fmt.Errorf("bucket %s not accessible: %w", opts.Bucket, err))
	}
	return st, nil
}

func (s *S3Store) fullKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *S3Store) trimKey(full string) string {
	if s.prefix == "" {
		return full
	}
	return strings.TrimPrefix(full, s.prefix+"/")
}

// ListKeys returns all keys with the given prefix, in lexical order as S3
// returns them.
func (s *S3Store) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.fullKey(prefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mantis.Tag(mantis.ErrTransient, fmt.Errorf("listing bucket %s: %w", s.bucket, err))
		}
		for _, obj := range page.Contents {
			keys = append(keys, s.trimKey(aws.ToString(obj.Key)))
		}
	}
	return keys, nil
}

// GetObject downloads the blob at key into destDir and returns the local
// path.
func (s *S3Store) GetObject(ctx context.Context, key, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("creating destination directory: %w", err))
	}
	localPath := filepath.Join(destDir, filepath.Base(key))

	f, err := os.Create(localPath)
	if err != nil {
		return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("creating %s: %w", localPath, err))
	}
	defer f.Close()

	_, err = s.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		os.Remove(localPath)
		return "", mantis.Tag(mantis.ErrTransient, fmt.Errorf("downloading %s: %w", key, err))
	}
	return localPath, nil
}

// PutObject uploads the local file under key.
func (s *S3Store) PutObject(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return mantis.Tag(mantis.ErrResource, fmt.Errorf("opening %s: %w", localPath, err))
	}
	defer f.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
		Body:   f,
	})
	if err != nil {
		return mantis.Tag(mantis.ErrTransient, fmt.Errorf("uploading %s: %w", key, err))
	}
	return nil
}
