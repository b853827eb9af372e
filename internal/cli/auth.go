package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"placementprep/internal/common"
	"placementprep/internal/identity"

	"github.com/spf13/cobra"
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Long: `Create an email and password account and print the session token.
The password is read from the first line of stdin when --password is not set.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveFormat(cmd, &signupConfig.CommandConfig)
	},
	RunE: runSignup,
}

var signupConfig struct {
	common.CommandConfig
	Request identity.SignUpRequest
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and print a session token",
	Long: `Sign in with email and password, or with a Google ID token via --google-token.
The password is read from the first line of stdin when --password is not set.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveFormat(cmd, &loginConfig.CommandConfig)
	},
	RunE: runLogin,
}

var loginConfig struct {
	common.CommandConfig
	Email       string
	Password    string
	GoogleToken string
}

func init() {
	addOutputFlags(signupCmd, &signupConfig.CommandConfig)
	signupCmd.Flags().StringVar(&signupConfig.Request.FirstName, "first-name", "", "First name")
	signupCmd.Flags().StringVar(&signupConfig.Request.LastName, "last-name", "", "Last name")
	signupCmd.Flags().StringVar(&signupConfig.Request.Email, "email", "", "Email address")
	signupCmd.Flags().StringVar(&signupConfig.Request.Password, "password", "", "Password (default: read from stdin)")
	_ = signupCmd.MarkFlagRequired("email")

	addOutputFlags(loginCmd, &loginConfig.CommandConfig)
	loginCmd.Flags().StringVar(&loginConfig.Email, "email", "", "Email address")
	loginCmd.Flags().StringVar(&loginConfig.Password, "password", "", "Password (default: read from stdin)")
	loginCmd.Flags().StringVar(&loginConfig.GoogleToken, "google-token", "", "Google ID token")
	loginCmd.MarkFlagsMutuallyExclusive("email", "google-token")
	loginCmd.MarkFlagsOneRequired("email", "google-token")
}

// passwordFrom returns flagValue, or the first line of in
func passwordFrom(flagValue string, in io.Reader) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newIdentityService(cmd *cobra.Command) (*identity.Service, error) {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	svc, err := identity.NewService(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity service: %w", err)
	}
	return svc, nil
}

func runSignup(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	req := signupConfig.Request
	password, err := passwordFrom(req.Password, cmd.InOrStdin())
	if err != nil {
		return err
	}
	req.Password = password

	svc, err := newIdentityService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	runner := common.NewRunner(cmd.OutOrStdout(), logger)
	return common.RunCommand(cmd.Context(), runner, signupConfig.CommandConfig, req,
		func(ctx context.Context, in identity.SignUpRequest) (identity.Session, error) {
			session, err := svc.SignUp(ctx, in)
			if err != nil {
				return identity.Session{}, errors.New(identity.MessageOf(err))
			}
			return session, nil
		},
		func(in identity.SignUpRequest, cfg common.CommandConfig) {
			logger.Debug("Creating account", "output_format", cfg.OutputFormat)
		},
	)
}

// loginInput is one sign-in attempt. GoogleToken wins over the password.
type loginInput struct {
	Email       string
	Password    string
	GoogleToken string
}

func runLogin(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	input := loginInput{Email: loginConfig.Email, GoogleToken: loginConfig.GoogleToken}
	if input.GoogleToken == "" {
		password, err := passwordFrom(loginConfig.Password, cmd.InOrStdin())
		if err != nil {
			return err
		}
		input.Password = password
	}

	svc, err := newIdentityService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	runner := common.NewRunner(cmd.OutOrStdout(), logger)
	return common.RunCommand(cmd.Context(), runner, loginConfig.CommandConfig, input,
		func(ctx context.Context, in loginInput) (identity.Session, error) {
			var session identity.Session
			var err error
			if in.GoogleToken != "" {
				session, err = svc.SignInWithGoogle(ctx, in.GoogleToken)
			} else {
				session, err = svc.SignIn(ctx, in.Email, in.Password)
			}
			if err != nil {
				return identity.Session{}, errors.New(identity.MessageOf(err))
			}
			return session, nil
		},
		func(in loginInput, cfg common.CommandConfig) {
			logger.Debug("Signing in", "google", in.GoogleToken != "", "output_format", cfg.OutputFormat)
		},
	)
}
