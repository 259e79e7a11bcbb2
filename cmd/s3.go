package cmd

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/creativepipe/cap/pkg/ratelimit"
	"github.com/creativepipe/cap/pkg/storage"
)

var (
	s3Bucket string
	s3Region string

	s3UploadUnique      bool
	s3DownloadOutput    string
	s3PresignUpload     bool
	s3PresignExpires    time.Duration
	s3PresignContentTyp string
)

var s3Cmd = &cobra.Command{
	Use:   "s3",
	Short: "Work with campaign assets in S3",
}

var s3UploadCmd = &cobra.Command{
	Use:   "upload <local file> <key>",
	Short: "Upload a local file to S3",
	Args:  cobra.ExactArgs(2),
	RunE:  runS3Upload,
}

var s3DownloadCmd = &cobra.Command{
	Use:   "download <key>",
	Short: "Download an object from S3",
	Args:  cobra.ExactArgs(1),
	RunE:  runS3Download,
}

var s3PresignCmd = &cobra.Command{
	Use:   "presign <key>",
	Short: "Create a presigned URL for an object",
	Args:  cobra.ExactArgs(1),
	RunE:  runS3Presign,
}

func init() {
	rootCmd.AddCommand(s3Cmd)
	s3Cmd.AddCommand(s3UploadCmd, s3DownloadCmd, s3PresignCmd)

	s3Cmd.PersistentFlags().StringVar(&s3Bucket, "bucket", "", "S3 bucket (defaults to S3_BUCKET_NAME)")
	s3Cmd.PersistentFlags().StringVar(&s3Region, "region", "", "AWS region (defaults to AWS_DEFAULT_REGION)")

	s3UploadCmd.Flags().BoolVar(&s3UploadUnique, "unique", false, "Prefix the key's file name with a unique ID")
	s3DownloadCmd.Flags().StringVar(&s3DownloadOutput, "output", "", "Local path to write to (defaults to tmp/<file name>)")
	s3PresignCmd.Flags().BoolVar(&s3PresignUpload, "upload", false, "Presign a PUT instead of a GET")
	s3PresignCmd.Flags().DurationVar(&s3PresignExpires, "expires", time.Hour, "How long the URL stays valid")
	s3PresignCmd.Flags().StringVar(&s3PresignContentTyp, "content-type", "", "Content type the PUT must use")
}

func s3Manager(ctx context.Context) (*storage.Manager, *ratelimit.Registry, error) {
	reg, err := limitsRegistry()
	if err != nil {
		return nil, nil, err
	}
	store, err := storageManager(ctx, reg, s3Bucket, s3Region)
	if err != nil {
		return nil, nil, err
	}
	return store, reg, nil
}

func runS3Upload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	local, key := args[0], args[1]

	store, _, err := s3Manager(ctx)
	if err != nil {
		return err
	}

	if s3UploadUnique {
		dir, base := path.Split(key)
		key = storage.UniqueKey(dir, base)
	}
	if err := store.UploadFile(ctx, key, local); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s to s3://%s/%s\n", local, store.Bucket(), key)
	return nil
}

func runS3Download(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	key := args[0]

	store, _, err := s3Manager(ctx)
	if err != nil {
		return err
	}

	local := s3DownloadOutput
	if local == "" {
		local = filepath.Join("tmp", filepath.Base(key))
	}
	if err := store.Download(ctx, key, local); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Downloaded s3://%s/%s to %s\n", store.Bucket(), key, local)
	return nil
}

func runS3Presign(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	key := args[0]

	store, _, err := s3Manager(ctx)
	if err != nil {
		return err
	}

	var url string
	if s3PresignUpload {
		url, err = store.PresignUpload(ctx, key, s3PresignExpires, s3PresignContentTyp)
	} else {
		url, err = store.PresignDownload(ctx, key, s3PresignExpires)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), url)
	return nil
}
