package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"placementprep/internal/common"
	appErrors "placementprep/internal/errors"
	"placementprep/internal/judge"
	"placementprep/internal/practice"
	"placementprep/internal/utils"

	"github.com/spf13/cobra"
)

const practiceHelp = `  show              print the problem, draft and test results
  new [difficulty]  load a different problem
  lang <language>   switch to java, cpp or python (drafts are kept per language)
  load <file>       replace the active draft with the contents of file
  run <n>           run example n (1-based) against the active draft
  submit            grade the active draft against the full test suite
  save [file]       write the active draft to file (default: named after the problem)
  help              list commands
  quit              leave the session`

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Interactive coding practice against the judge",
	Long: "Start an interactive practice session. A problem is loaded from the judge,\n" +
		"then commands are read line by line:\n\n" + practiceHelp,
	Args: cobra.NoArgs,
	RunE: runPractice,
}

var practiceFlags struct {
	Difficulty string
	Language   string
}

func init() {
	practiceCmd.Flags().StringVarP(&practiceFlags.Difficulty, "difficulty", "d", "", "Problem difficulty (default from config)")
	practiceCmd.Flags().StringVarP(&practiceFlags.Language, "language", "l", "", "Starting language (default from config)")
}

func runPractice(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	langName := practiceFlags.Language
	if langName == "" {
		langName = cfg.Practice.DefaultLanguage
	}
	lang, err := common.ParseLanguageArg(langName)
	if err != nil {
		return err
	}

	client, err := judge.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create judge client: %w", err)
	}

	session := practice.NewSession(client, practice.Options{
		ID:                "cli",
		DefaultDifficulty: cfg.Practice.DefaultDifficulty,
		Language:          lang,
		Logger:            logger,
	})

	sh := newPracticeShell(session, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
	_ = sh.exec(cmd.Context(), "new "+practiceFlags.Difficulty)
	return sh.loop(cmd.Context())
}

// practiceShell is the line-oriented front end of one session
type practiceShell struct {
	session *practice.Session
	in      *bufio.Scanner
	out     io.Writer
	runner  *common.Runner
	files   *common.FileProcessor
}

var errQuit = errors.New("quit")

func newPracticeShell(session *practice.Session, in io.Reader, out io.Writer, logger *appErrors.Logger) *practiceShell {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &practiceShell{
		session: session,
		in:      scanner,
		out:     out,
		runner:  common.NewRunner(out, logger),
		files:   common.NewFileProcessor(logger),
	}
}

// loop reads commands until quit, end of input or ctx is done
func (sh *practiceShell) loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		sh.printf("> ")
		if !sh.in.Scan() {
			sh.printf("\n")
			return sh.in.Err()
		}
		if err := sh.exec(ctx, sh.in.Text()); errors.Is(err, errQuit) {
			return nil
		}
	}
}

// exec runs one command line. Errors are printed and only errQuit is returned.
func (sh *practiceShell) exec(ctx context.Context, line string) error {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch strings.ToLower(name) {
	case "":
		return nil
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		sh.printf("%s\n", practiceHelp)
	case "show":
		err = sh.show()
	case "new":
		err = sh.newProblem(ctx, arg)
	case "lang":
		err = sh.switchLanguage(arg)
	case "load":
		err = sh.load(arg)
	case "run":
		err = sh.run(ctx, arg)
	case "submit":
		err = sh.submit(ctx)
	case "save":
		err = sh.save(arg)
	default:
		err = fmt.Errorf("unknown command %q, type help for the list", name)
	}

	if err != nil {
		sh.printf("error: %s\n", err)
	}
	return nil
}

func (sh *practiceShell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(sh.out, format, args...)
}

func (sh *practiceShell) text(data any) error {
	return sh.runner.Output(data, common.CommandConfig{OutputFormat: "text"})
}

func (sh *practiceShell) show() error {
	return sh.text(sh.session.Snapshot())
}

func (sh *practiceShell) newProblem(ctx context.Context, difficulty string) error {
	sh.printf("Loading problem...\n")
	err := sh.session.FetchProblem(ctx, practice.FetchOptions{Difficulty: difficulty, ForceNew: true})
	if err != nil {
		if errors.Is(err, practice.ErrStaleResponse) {
			return err
		}
		return errors.New(practice.MsgLoadFailed)
	}
	return sh.show()
}

func (sh *practiceShell) switchLanguage(arg string) error {
	lang, err := common.ParseLanguageArg(arg)
	if err != nil {
		return err
	}
	if err := sh.session.SwitchLanguage(lang); err != nil {
		return err
	}
	sh.printf("Language: %s\n", lang)
	return nil
}

func (sh *practiceShell) load(path string) error {
	if path == "" {
		return fmt.Errorf("usage: load <file>")
	}
	code, err := sh.files.ReadFile(path)
	if err != nil {
		return err
	}
	sh.session.EditCode(code)
	sh.printf("Loaded %s into the %s draft\n", utils.FormatFileSize(int64(len(code))), sh.session.Snapshot().Language)
	return nil
}

func (sh *practiceShell) run(ctx context.Context, arg string) error {
	view := sh.session.Snapshot()
	if view.Problem == nil {
		return practice.ErrNoProblem
	}
	index, err := common.ParseExampleIndex(arg, len(view.Problem.Examples))
	if err != nil {
		return err
	}

	sh.printf("Running example %d...\n", index+1)
	result, err := sh.session.RunExample(ctx, index)
	if err != nil {
		return err
	}
	return sh.text(result)
}

func (sh *practiceShell) submit(ctx context.Context) error {
	sh.printf("Submitting...\n")
	result, err := sh.session.SubmitSolution(ctx)
	if err != nil {
		return err
	}
	return sh.text(result)
}

func (sh *practiceShell) save(path string) error {
	view := sh.session.Snapshot()
	if path == "" {
		if view.Problem == nil {
			return practice.ErrNoProblem
		}
		path = utils.SolutionFileName(view.Problem.Title, view.Language)
	}
	if err := sh.files.WriteFile(path, view.Code); err != nil {
		return err
	}
	sh.printf("Saved %s draft to %s\n", view.Language, path)
	return nil
}
