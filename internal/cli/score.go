package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"placementprep/internal/common"
	"placementprep/internal/scorer"
	"placementprep/internal/types"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score [resume-file] [job-description-file]",
	Short: "Score a resume against a job description",
	Long: `Score a resume (PDF or DOCX) against a plain-text job description.
The result is a match percentage, keywords missing from the resume and improvement tips.
The backend is chosen by scorer.mode: remote, gemini or demo.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveFormat(cmd, &scoreConfig)
	},
	RunE: runScore,
}

var scoreConfig common.CommandConfig

func init() {
	addOutputFlags(scoreCmd, &scoreConfig)
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	svc, err := scorer.NewService(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create scorer: %w", err)
	}

	files := common.NewFileProcessor(logger)
	resume, err := files.ReadBytes(args[0], cfg.Scorer.MaxFileSize)
	if err != nil {
		return err
	}
	job, err := files.ReadFile(args[1])
	if err != nil {
		return err
	}

	upload := types.ResumeUpload{
		FileName:       filepath.Base(args[0]),
		Content:        resume,
		JobDescription: strings.TrimSpace(job),
	}

	logDetails := func(input types.ResumeUpload, cfg common.CommandConfig) {
		logger.Info("Starting resume scoring",
			"mode", svc.Mode(),
			"resume_bytes", len(input.Content),
			"job_chars", len(input.JobDescription),
			"output_format", cfg.OutputFormat)
	}

	runner := common.NewRunner(cmd.OutOrStdout(), logger)
	err = common.RunCommand(cmd.Context(), runner, scoreConfig, upload,
		func(ctx context.Context, in types.ResumeUpload) (types.ScoreResult, error) {
			return svc.Score(ctx, in)
		},
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to score resume: %w", err)
	}
	logger.Info("Resume scoring completed successfully")
	return nil
}
