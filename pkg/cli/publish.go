package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jlevy/kash-media/pkg/presenter"
	"github.com/jlevy/kash-media/pkg/publish"
)

type PublishConfig struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Include   string
	Exclude   string
}

// NewPublishConfig reads the publish.* config keys. Credentials have no
// flags; they come from the config file or KASH_PUBLISH_* environment
// variables, falling back to the AWS credential chain when unset.
func NewPublishConfig() *PublishConfig {
	return &PublishConfig{
		Bucket:    viper.GetString("publish.bucket"),
		Prefix:    viper.GetString("publish.prefix"),
		Region:    viper.GetString("publish.region"),
		Endpoint:  viper.GetString("publish.endpoint"),
		AccessKey: viper.GetString("publish.access_key"),
		SecretKey: viper.GetString("publish.secret_key"),
	}
}

func getPublishConfigFromFlags(cmd *cobra.Command) *PublishConfig {
	config := NewPublishConfig()
	if bucket, err := cmd.Flags().GetString("bucket"); err == nil && bucket != "" {
		config.Bucket = bucket
	}
	if prefix, err := cmd.Flags().GetString("prefix"); err == nil && prefix != "" {
		config.Prefix = prefix
	}
	if region, err := cmd.Flags().GetString("region"); err == nil && region != "" {
		config.Region = region
	}
	if endpoint, err := cmd.Flags().GetString("endpoint"); err == nil && endpoint != "" {
		config.Endpoint = endpoint
	}
	if include, err := cmd.Flags().GetString("include"); err == nil && include != "" {
		config.Include = include
	}
	if exclude, err := cmd.Flags().GetString("exclude"); err == nil && exclude != "" {
		config.Exclude = exclude
	}
	return config
}

func newPublishCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish <path>",
		Short: "Upload a file or directory to S3",
		Long: `Upload a local file or directory tree to an S3 bucket (or any
S3-compatible store via --endpoint, which switches to path-style
addressing). Store paths are resolved inside the workspace, so
'publish exports' uploads the rendered exports. Credentials come from
the usual AWS environment or config files.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			config := getPublishConfigFromFlags(cmd)
			runPublishCommand(cmd.Context(), args[0], config)
		},
	}
	cmd.Flags().String("bucket", "", "Destination bucket (required unless configured)")
	cmd.Flags().String("prefix", "", "Key prefix inside the bucket")
	cmd.Flags().String("region", "", "AWS region")
	cmd.Flags().String("endpoint", "", "Custom S3 endpoint (MinIO, R2)")
	cmd.Flags().String("include", "", "Glob pattern of files to include")
	cmd.Flags().String("exclude", "", "Glob pattern of files to exclude")
	return cmd
}

func runPublishCommand(ctx context.Context, path string, config *PublishConfig) {
	if config.Bucket == "" {
		fatal(fmt.Errorf("no bucket given"), "set --bucket or the publish.bucket config key")
	}

	localPath := resolvePublishPath(path)

	uploader, err := publish.New(ctx, publish.Config{
		Bucket:    config.Bucket,
		Region:    config.Region,
		Endpoint:  config.Endpoint,
		AccessKey: config.AccessKey,
		SecretKey: config.SecretKey,
	})
	if err != nil {
		fatal(err, "failed to create uploader")
	}

	urls, err := uploader.UploadPath(ctx, localPath, config.Prefix, publish.Options{
		Include: config.Include,
		Exclude: config.Exclude,
	})
	if err != nil {
		fatal(err, "upload failed")
	}

	for _, url := range urls {
		presenter.Info(url)
	}
	presenter.Success(fmt.Sprintf("Published %d files to s3://%s", len(urls), config.Bucket))
}

// resolvePublishPath accepts either a filesystem path or a store path
// inside the enclosing workspace.
func resolvePublishPath(path string) string {
	if _, err := os.Stat(path); err == nil {
		return path
	}
	if ws, err := openWorkspace(); err == nil {
		if abs, err := ws.AbsPath(path); err == nil {
			if _, err := os.Stat(abs); err == nil {
				return abs
			}
		}
	}
	return path
}
