package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	renditionInput      string
	renditionOutputKey  string
	renditionDownloadTo string
)

var renditionCmd = &cobra.Command{
	Use:   "rendition",
	Short: "Create a PNG rendition of a PSD",
	Long: `Render a PSD into a PNG. The rendition is written to the given S3 key;
with --download-to it is also fetched into a local directory.`,
	RunE: runRendition,
}

func init() {
	rootCmd.AddCommand(renditionCmd)

	renditionCmd.Flags().StringVar(&renditionInput, "input", "", "URL of the input PSD")
	renditionCmd.Flags().StringVar(&renditionOutputKey, "output-key", "", "S3 key the PNG is written to")
	renditionCmd.Flags().StringVar(&renditionDownloadTo, "download-to", "", "Download the rendition into this directory")
	_ = renditionCmd.MarkFlagRequired("input")
	_ = renditionCmd.MarkFlagRequired("output-key")
}

func runRendition(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	reg, err := limitsRegistry()
	if err != nil {
		return err
	}
	store, err := storageManager(ctx, reg, "", "")
	if err != nil {
		return err
	}
	ps, err := photoshopClient(ctx, reg)
	if err != nil {
		return err
	}

	outputURL, err := store.PresignUpload(ctx, renditionOutputKey, presignTTL, "")
	if err != nil {
		return err
	}
	statusURL, err := ps.CreateRendition(ctx, renditionInput, outputURL)
	if err != nil {
		return err
	}
	if _, err := ps.AwaitJob(ctx, statusURL); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Rendition written to s3://%s/%s\n", store.Bucket(), renditionOutputKey)

	if renditionDownloadTo != "" {
		local := filepath.Join(renditionDownloadTo, filepath.Base(renditionOutputKey))
		if err := store.Download(ctx, renditionOutputKey, local); err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved %s\n", local)
		return nil
	}

	resultURL, err := store.PresignDownload(ctx, renditionOutputKey, presignTTL)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Download: %s\n", resultURL)
	return nil
}
