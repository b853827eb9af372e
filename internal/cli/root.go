package cli

import (
	"context"

	"placementprep/internal/common"
	"placementprep/internal/config"
	"placementprep/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "placementprep",
	Short: "Placement preparation: coding practice, resume scoring and mock interviews",
	Long: `Placementprep helps students prepare for campus placements.
It fetches coding problems from a remote judge and runs your solutions against them,
scores a resume against a job description and runs single-question mock interviews.
The serve command exposes the same features over HTTP.`,
	SilenceUsage: true,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.ExecuteContext(ctx)
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

// addOutputFlags registers -o/--output and --format on cmd, bound to target
func addOutputFlags(cmd *cobra.Command, target *common.CommandConfig) {
	cmd.Flags().StringVarP(&target.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&target.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return common.NewOutputHandler(nil).GetSupportedFormats(), cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveFormat applies the configured default format and validates the result
func resolveFormat(cmd *cobra.Command, target *common.CommandConfig) error {
	cfg := getConfigFromContext(cmd.Context())
	if target.OutputFormat == "" {
		target.OutputFormat = cfg.App.DefaultFormat
	}
	return common.ValidateOutputFormat(target.OutputFormat, cfg.App.SupportedFormats)
}

func init() {
	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(problemCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(interviewCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
