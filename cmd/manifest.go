package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/creativepipe/cap/pkg/adobe"
)

var (
	manifestOutput     string
	manifestListLayers string
)

var manifestCmd = &cobra.Command{
	Use:   "manifest [psd-url]",
	Short: "Retrieve a PSD document manifest",
	Long: `Ask the Photoshop API to describe a PSD's layer tree and save the JSON
manifest. With --list-layers the layers of a previously saved manifest are
printed instead of calling the API.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runManifest,
}

func init() {
	rootCmd.AddCommand(manifestCmd)

	manifestCmd.Flags().StringVar(&manifestOutput, "output", "tmp/document_manifest.json", "File the manifest JSON is written to")
	manifestCmd.Flags().StringVar(&manifestListLayers, "list-layers", "", "List layer names from a local manifest file")
}

func runManifest(cmd *cobra.Command, args []string) error {
	if manifestListLayers != "" {
		return listManifestLayers(cmd.OutOrStdout(), manifestListLayers)
	}
	if len(args) == 0 {
		return fmt.Errorf("a psd-url argument is required unless --list-layers is given")
	}

	ctx := cmd.Context()
	reg, err := limitsRegistry()
	if err != nil {
		return err
	}
	ps, err := photoshopClient(ctx, reg)
	if err != nil {
		return err
	}

	statusURL, err := ps.CreateManifest(ctx, args[0])
	if err != nil {
		return err
	}
	raw, err := ps.AwaitJob(ctx, statusURL)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return err
	}
	if dir := filepath.Dir(manifestOutput); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(manifestOutput, pretty.Bytes(), 0o644); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Manifest saved to %s\n", manifestOutput)
	return nil
}

func listManifestLayers(out io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	layers, err := adobe.ManifestLayers(data)
	if err != nil {
		return err
	}
	if len(layers) == 0 {
		fmt.Fprintln(out, "No layers found in the manifest.")
		return nil
	}

	fmt.Fprintf(out, "Layers in %s:\n", path)
	printLayers(out, layers, 0)
	return nil
}

func printLayers(out io.Writer, layers []adobe.Layer, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, l := range layers {
		fmt.Fprintf(out, "%s%d | %s | %s\n", indent, l.ID, l.Name, l.Kind())
		printLayers(out, l.Children, depth+1)
	}
}
