package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creativepipe/cap/pkg/brief"
)

var promptModel string

var promptCmd = &cobra.Command{
	Use:   "prompt <brief file>",
	Short: "Generate a Firefly prompt from a campaign brief",
	Long: `Read a campaign brief and turn its demographics into an Adobe Firefly
background prompt using the OpenAI chat completions API.`,
	Args: cobra.ExactArgs(1),
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVar(&promptModel, "model", "", "OpenAI model: gpt-4, gpt-4-turbo, or gpt-3.5-turbo (default: $OPENAI_MODEL or gpt-4)")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	b, err := brief.Load(args[0])
	if err != nil {
		return err
	}

	reg, err := limitsRegistry()
	if err != nil {
		return err
	}
	gen, err := promptGenerator(reg, promptModel)
	if err != nil {
		return err
	}

	prompt, err := gen.FireflyPrompt(ctx, b.Demographics())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Campaign: %s\n", b.CampaignName)
	fmt.Fprintf(out, "Model: %s\n\n", gen.Model())
	fmt.Fprintln(out, prompt)
	return nil
}
