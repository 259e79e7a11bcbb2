package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/creativepipe/cap/internal/pipeline"
	"github.com/creativepipe/cap/pkg/brief"
)

var (
	pipelineBucket      string
	pipelineRegion      string
	pipelineAssets      string
	pipelineOutput      string
	pipelineSkipFirefly bool
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline [brief files...]",
	Short: "Run the campaign automation pipeline",
	Long: `Process campaign briefs end to end: stage PSD templates in S3, apply
text and smart object edits through the Photoshop API, generate Firefly
backgrounds, and download the finished PNG renditions.

Without arguments every brief in <assets>/briefs is processed.`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(pipelineCmd)

	pipelineCmd.Flags().StringVar(&pipelineBucket, "bucket", "", "S3 bucket for staging and outputs (default: $S3_BUCKET_NAME)")
	pipelineCmd.Flags().StringVar(&pipelineRegion, "region", "", "AWS region (default: $AWS_DEFAULT_REGION)")
	pipelineCmd.Flags().StringVar(&pipelineAssets, "assets", "tmp", "Directory holding templates and product images")
	pipelineCmd.Flags().StringVar(&pipelineOutput, "output", "tmp/output", "Directory renditions are downloaded into")
	pipelineCmd.Flags().BoolVar(&pipelineSkipFirefly, "skip-firefly", false, "Skip Firefly background generation")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	reg, err := limitsRegistry()
	if err != nil {
		return err
	}
	store, err := storageManager(ctx, reg, pipelineBucket, pipelineRegion)
	if err != nil {
		return err
	}
	editor, err := photoshopClient(ctx, reg)
	if err != nil {
		return err
	}

	deps := pipeline.Deps{Store: store, Editor: editor}
	if !pipelineSkipFirefly {
		if deps.Images, err = fireflyClient(ctx, reg); err != nil {
			return err
		}
		if deps.Prompter, err = promptGenerator(reg, ""); err != nil {
			return err
		}
	}

	runner, err := pipeline.New(deps,
		pipeline.WithLogger(slog.Default()),
		pipeline.WithAssetsDir(pipelineAssets),
		pipeline.WithOutputDir(pipelineOutput),
		pipeline.WithManifestsDir(filepath.Join(pipelineAssets, "manifests")),
		pipeline.WithSkipFirefly(pipelineSkipFirefly),
		pipeline.WithPresignTTL(presignTTL),
	)
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		if paths, err = brief.Files(filepath.Join(pipelineAssets, "briefs")); err != nil {
			return err
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no campaign briefs found in %s", filepath.Join(pipelineAssets, "briefs"))
	}

	summary, err := runner.Run(ctx, paths)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Processed %d brief(s), %d failed\n", summary.Processed, summary.Failed)
	for _, res := range summary.Results {
		fmt.Fprintf(out, "\n%s (%s, %s)\n", res.CampaignName, res.Template, res.AspectRatio)
		for _, f := range res.FilesCreated {
			fmt.Fprintf(out, "  - %s\n", f)
		}
	}
	return nil
}
