package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creativepipe/cap/pkg/adobe"
)

var (
	textLayerInput     string
	textLayerName      string
	textLayerText      string
	textLayerOutputKey string
)

var textLayerCmd = &cobra.Command{
	Use:   "text-layer",
	Short: "Edit a text layer in a PSD",
	Long: `Replace the contents of a named text layer. The edited PSD is written to
the given S3 key and a presigned download URL for it is printed.`,
	RunE: runTextLayer,
}

func init() {
	rootCmd.AddCommand(textLayerCmd)

	textLayerCmd.Flags().StringVar(&textLayerInput, "input", "", "URL of the input PSD")
	textLayerCmd.Flags().StringVar(&textLayerName, "layer", "", "Name of the text layer to edit")
	textLayerCmd.Flags().StringVar(&textLayerText, "text", "", "Replacement text")
	textLayerCmd.Flags().StringVar(&textLayerOutputKey, "output-key", "", "S3 key the edited PSD is written to")
	_ = textLayerCmd.MarkFlagRequired("input")
	_ = textLayerCmd.MarkFlagRequired("layer")
	_ = textLayerCmd.MarkFlagRequired("text")
	_ = textLayerCmd.MarkFlagRequired("output-key")
}

func runTextLayer(cmd *cobra.Command, args []string) error {
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

	outputURL, err := store.PresignUpload(ctx, textLayerOutputKey, presignTTL, "")
	if err != nil {
		return err
	}
	statusURL, err := ps.EditTextLayer(ctx, adobe.TextEdit{
		InputURL:  textLayerInput,
		LayerName: textLayerName,
		Text:      textLayerText,
		OutputURL: outputURL,
	})
	if err != nil {
		return err
	}
	if _, err := ps.AwaitJob(ctx, statusURL); err != nil {
		return err
	}

	resultURL, err := store.PresignDownload(ctx, textLayerOutputKey, presignTTL)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Text layer %q updated.\n", textLayerName)
	fmt.Fprintf(out, "Output: s3://%s/%s\n", store.Bucket(), textLayerOutputKey)
	fmt.Fprintf(out, "Download: %s\n", resultURL)
	return nil
}
