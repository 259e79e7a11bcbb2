package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creativepipe/cap/pkg/adobe"
)

var (
	smartObjectInput     string
	smartObjectLayer     string
	smartObjectContent   string
	smartObjectOutputKey string
)

var smartObjectCmd = &cobra.Command{
	Use:   "smart-object",
	Short: "Replace a smart object layer in a PSD",
	Long: `Swap the contents of a named smart object layer for another image. The
composed PSD is written to the given S3 key and a presigned download URL
for it is printed.`,
	RunE: runSmartObject,
}

func init() {
	rootCmd.AddCommand(smartObjectCmd)

	smartObjectCmd.Flags().StringVar(&smartObjectInput, "input", "", "URL of the input PSD")
	smartObjectCmd.Flags().StringVar(&smartObjectLayer, "layer", "", "Name of the smart object layer to replace")
	smartObjectCmd.Flags().StringVar(&smartObjectContent, "object", "", "URL of the replacement content")
	smartObjectCmd.Flags().StringVar(&smartObjectOutputKey, "output-key", "", "S3 key the composed PSD is written to")
	_ = smartObjectCmd.MarkFlagRequired("input")
	_ = smartObjectCmd.MarkFlagRequired("layer")
	_ = smartObjectCmd.MarkFlagRequired("object")
	_ = smartObjectCmd.MarkFlagRequired("output-key")
}

func runSmartObject(cmd *cobra.Command, args []string) error {
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

	outputURL, err := store.PresignUpload(ctx, smartObjectOutputKey, presignTTL, "")
	if err != nil {
		return err
	}
	statusURL, err := ps.ReplaceSmartObject(ctx, adobe.SmartObjectSwap{
		InputURL:   smartObjectInput,
		LayerName:  smartObjectLayer,
		ContentURL: smartObjectContent,
		OutputURL:  outputURL,
	})
	if err != nil {
		return err
	}
	if _, err := ps.AwaitJob(ctx, statusURL); err != nil {
		return err
	}

	resultURL, err := store.PresignDownload(ctx, smartObjectOutputKey, presignTTL)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Smart object %q replaced.\n", smartObjectLayer)
	fmt.Fprintf(out, "Output: s3://%s/%s\n", store.Bucket(), smartObjectOutputKey)
	fmt.Fprintf(out, "Download: %s\n", resultURL)
	return nil
}
