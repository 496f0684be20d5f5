// Package publish uploads local files to S3-compatible object storage,
// so rendered exports and their assets can be shared from a bucket.
package publish

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jlevy/kash-media/pkg/logger"
)

// ErrInvalidPath indicates the local path to publish does not exist.
var ErrInvalidPath = errors.New("path does not exist")

// ObjectPutter is the part of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config locates the destination bucket. Endpoint switches the client
// to an S3-compatible service like MinIO or R2 and implies path-style
// addressing. AccessKey/SecretKey override the default credential
// chain; services behind a custom endpoint usually need them.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Uploader publishes files to one bucket.
type Uploader struct {
	client ObjectPutter
	bucket string
}

// New builds an Uploader using static credentials when configured, or
// the default AWS credential chain (environment variables, shared
// config, instance roles) otherwise.
func New(ctx context.Context, cfg Config) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	var loadOpts []func(*awscfg.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awscfg.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return NewWithClient(s3.NewFromConfig(awsCfg, clientOpts...), cfg.Bucket), nil
}

// NewWithClient wraps an existing S3 client.
func NewWithClient(client ObjectPutter, bucket string) *Uploader {
	return &Uploader{client: client, bucket: bucket}
}

// Options filter which files a directory upload sends. Patterns match
// slash-separated paths relative to the uploaded directory.
type Options struct {
	// Include keeps only matching files when set.
	Include string
	// Exclude drops matching files.
	Exclude string
}

// UploadPath uploads a file, or every file under a directory, to the
// bucket under prefix. It returns s3:// URLs for the uploaded objects
// in walk order.
func (u *Uploader) UploadPath(ctx context.Context, localPath, prefix string, opts Options) ([]string, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrInvalidPath, "%s", localPath)
		}
		return nil, errors.Wrapf(err, "failed to stat %s", localPath)
	}

	include, exclude, err := compileFilters(opts)
	if err != nil {
		return nil, err
	}
	prefix = strings.Trim(prefix, "/")

	if !info.IsDir() {
		url, err := u.uploadFile(ctx, localPath, joinKey(prefix, filepath.Base(localPath)))
		if err != nil {
			return nil, err
		}
		logger.G(ctx).WithField("url", url).Info("published file")
		return []string{url}, nil
	}

	var urls []string
	walkErr := filepath.WalkDir(localPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localPath, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if include != nil && !include.Match(rel) {
			return nil
		}
		if exclude != nil && exclude.Match(rel) {
			return nil
		}
		url, err := u.uploadFile(ctx, path, joinKey(prefix, rel))
		if err != nil {
			return err
		}
		urls = append(urls, url)
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrapf(walkErr, "failed to publish %s", localPath)
	}

	logger.G(ctx).WithFields(logrus.Fields{
		"path":   localPath,
		"bucket": u.bucket,
		"count":  len(urls),
	}).Info("published directory")
	return urls, nil
}

func (u *Uploader) uploadFile(ctx context.Context, path, key string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	logger.G(ctx).WithField("key", key).Debug("uploading object")
	if _, err := u.client.PutObject(ctx, input); err != nil {
		return "", errors.Wrapf(err, "failed to upload %s", key)
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}

func joinKey(prefix, rel string) string {
	if prefix == "" {
		return rel
	}
	return prefix + "/" + rel
}

func compileFilters(opts Options) (include, exclude glob.Glob, err error) {
	if opts.Include != "" {
		include, err = glob.Compile(opts.Include, '/')
		if err != nil {
			return nil, nil, errors.Wrapf(err, "bad include pattern %q", opts.Include)
		}
	}
	if opts.Exclude != "" {
		exclude, err = glob.Compile(opts.Exclude, '/')
		if err != nil {
			return nil, nil, errors.Wrapf(err, "bad exclude pattern %q", opts.Exclude)
		}
	}
	return include, exclude, nil
}
