package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"placementprep/internal/common"
	"placementprep/internal/interview"

	"github.com/spf13/cobra"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Answer one interview question and get it graded",
	Long: `Ask for one technical interview question, read your answer and print
the score and feedback. The answer is read from --answer-file, or from stdin
until end of input (Ctrl-D) when no file is given.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveFormat(cmd, &interviewConfig.CommandConfig)
	},
	RunE: runInterview,
}

var interviewConfig struct {
	common.CommandConfig
	AnswerFile string
}

func init() {
	addOutputFlags(interviewCmd, &interviewConfig.CommandConfig)
	interviewCmd.Flags().StringVar(&interviewConfig.AnswerFile, "answer-file", "", "Read the answer from this file instead of stdin")
}

func runInterview(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	provider, err := interview.NewProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create interview provider: %w", err)
	}

	readAnswer := func() (string, error) {
		if interviewConfig.AnswerFile != "" {
			return common.NewFileProcessor(logger).ReadFile(interviewConfig.AnswerFile)
		}
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Type your answer, then press Ctrl-D:")
		raw, err := io.ReadAll(cmd.InOrStdin())
		return string(raw), err
	}

	round := interview.NewRound(provider)
	if err := playRound(cmd.Context(), round, readAnswer, cmd.ErrOrStderr()); err != nil {
		return fmt.Errorf("interview failed: %w", err)
	}

	runner := common.NewRunner(cmd.OutOrStdout(), logger)
	return runner.Output(round.Snapshot(), interviewConfig.CommandConfig)
}

// playRound shows a question on out, then grades the answer returned by readAnswer
func playRound(ctx context.Context, round *interview.Round, readAnswer func() (string, error), out io.Writer) error {
	question, err := round.Start(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Question: %s\n\n", question)

	answer, err := readAnswer()
	if err != nil {
		return err
	}
	if strings.TrimSpace(answer) == "" {
		return fmt.Errorf("no answer given")
	}

	_, err = round.Answer(ctx, answer)
	return err
}
