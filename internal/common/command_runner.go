package common

import (
	"context"
	"io"
	"time"

	"placementprep/internal/errors"
)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// OperationFunc is one remote operation behind a CLI command
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, error)

// Runner executes a command's operation and hands the result to the output handler
type Runner struct {
	logger *errors.Logger
	output *OutputHandler
}

// NewRunner prints results to w unless the command sets an output file
func NewRunner(w io.Writer, logger *errors.Logger) *Runner {
	return &Runner{logger: logger, output: NewOutputHandlerWithWriter(w, logger)}
}

// RunCommand encapsulates the common logic for CLI commands that call a remote service.
func RunCommand[Input, Output any](
	ctx context.Context,
	runner *Runner,
	cmdConfig CommandConfig,
	input Input,
	operation OperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	start := time.Now()
	result, err := operation(ctx, input)
	if err != nil {
		return err
	}
	runner.logger.Debug("Operation completed", "duration", time.Since(start).String())

	return runner.output.HandleOutput(result, cmdConfig)
}

// Output writes data directly, for commands without a remote call
func (r *Runner) Output(data any, cmdConfig CommandConfig) error {
	return r.output.HandleOutput(data, cmdConfig)
}
