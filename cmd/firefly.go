package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/creativepipe/cap/pkg/adobe"
)

var (
	fireflyVariations   int
	fireflySize         string
	fireflyLocale       string
	fireflyContentClass string
	fireflyDownloadTo   string
)

var fireflyCmd = &cobra.Command{
	Use:   "firefly <prompt>",
	Short: "Generate images with Adobe Firefly",
	Long: `Generate images from a text prompt using the Firefly V3 async API and
print the resulting image URLs. With --download-to the images are also
saved locally.`,
	Args: cobra.ExactArgs(1),
	RunE: runFirefly,
}

func init() {
	rootCmd.AddCommand(fireflyCmd)

	fireflyCmd.Flags().IntVar(&fireflyVariations, "variations", 1, "Number of image variations")
	fireflyCmd.Flags().StringVar(&fireflySize, "size", "1024x1024", "Image size as WIDTHxHEIGHT")
	fireflyCmd.Flags().StringVar(&fireflyLocale, "locale", "en-US", "Prompt biasing locale code")
	fireflyCmd.Flags().StringVar(&fireflyContentClass, "content-class", "photo", "Content class: photo, art, or design")
	fireflyCmd.Flags().StringVar(&fireflyDownloadTo, "download-to", "", "Download generated images into this directory")
}

func runFirefly(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	width, height, err := parseSize(fireflySize)
	if err != nil {
		return err
	}

	reg, err := limitsRegistry()
	if err != nil {
		return err
	}
	firefly, err := fireflyClient(ctx, reg)
	if err != nil {
		return err
	}

	urls, err := firefly.GenerateAndAwait(ctx, adobe.GenerateRequest{
		Prompt:        args[0],
		NumVariations: fireflyVariations,
		Width:         width,
		Height:        height,
		Locale:        fireflyLocale,
		ContentClass:  fireflyContentClass,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generated %d image(s):\n", len(urls))
	for i, url := range urls {
		fmt.Fprintf(out, "%d. %s\n", i+1, url)
	}

	if fireflyDownloadTo == "" {
		return nil
	}
	return downloadImages(ctx, out, urls, fireflyDownloadTo)
}

func parseSize(size string) (width, height int, err error) {
	parts := strings.SplitN(strings.ToLower(size), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid size %q: want WIDTHxHEIGHT", size)
	}
	width, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q: want WIDTHxHEIGHT", size)
	}
	height, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q: want WIDTHxHEIGHT", size)
	}
	return width, height, nil
}

func downloadImages(ctx context.Context, out io.Writer, urls []string, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	for i, url := range urls {
		path := filepath.Join(dir, fmt.Sprintf("firefly-%d.png", i+1))
		if err := fetchFile(ctx, client, url, path); err != nil {
			return fmt.Errorf("download image %d: %w", i+1, err)
		}
		fmt.Fprintf(out, "Saved %s\n", path)
	}
	return nil
}

func fetchFile(ctx context.Context, client *http.Client, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
