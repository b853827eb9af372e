package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"placementprep/internal/common"
	"placementprep/internal/formatters"
	"placementprep/internal/judge"
	"placementprep/internal/types"
	"placementprep/internal/utils"

	"github.com/spf13/cobra"
)

var problemCmd = &cobra.Command{
	Use:   "problem",
	Short: "Fetch a coding problem from the judge",
	Long: `Fetch one coding problem from the judge and print it.
With --save-dir the problem is also written as Markdown next to a starter file
for every supported language, named after the problem title.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveFormat(cmd, &problemConfig.CommandConfig)
	},
	RunE: runProblem,
}

var problemConfig struct {
	common.CommandConfig
	Difficulty string
	SaveDir    string
}

func init() {
	addOutputFlags(problemCmd, &problemConfig.CommandConfig)
	problemCmd.Flags().StringVarP(&problemConfig.Difficulty, "difficulty", "d", "", "Problem difficulty: easy, medium or hard (default from config)")
	problemCmd.Flags().StringVar(&problemConfig.SaveDir, "save-dir", "", "Directory to write the problem and starter files into")
}

func runProblem(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	client, err := judge.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create judge client: %w", err)
	}

	query := judge.ProblemQuery{Difficulty: problemConfig.Difficulty}
	if query.Difficulty == "" {
		query.Difficulty = cfg.Practice.DefaultDifficulty
	}

	var problem *types.Problem
	runner := common.NewRunner(cmd.OutOrStdout(), logger)
	err = common.RunCommand(cmd.Context(), runner, problemConfig.CommandConfig, query,
		func(ctx context.Context, q judge.ProblemQuery) (*types.Problem, error) {
			p, err := client.FetchProblem(ctx, q)
			problem = p
			return p, err
		},
		func(q judge.ProblemQuery, cfg common.CommandConfig) {
			logger.Info("Fetching problem", "difficulty", q.Difficulty, "output_format", cfg.OutputFormat)
		},
	)
	if err != nil {
		return fmt.Errorf("failed to fetch problem: %w", err)
	}

	if problemConfig.SaveDir != "" {
		return saveProblem(common.NewFileProcessor(logger), problemConfig.SaveDir, problem)
	}
	return nil
}

// saveProblem writes <slug>.md and one starter file per language into dir
func saveProblem(files *common.FileProcessor, dir string, problem *types.Problem) error {
	markdown, err := formatters.GlobalRegistry.Format(problem, "markdown")
	if err != nil {
		return err
	}
	if err := files.WriteFile(filepath.Join(dir, utils.ProblemFileName(problem.Title)), markdown); err != nil {
		return err
	}

	for _, lang := range types.Languages {
		name := filepath.Join(dir, utils.SolutionFileName(problem.Title, lang))
		if err := files.WriteFile(name, problem.StarterCode(lang)+"\n"); err != nil {
			return err
		}
	}
	return nil
}
