package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storefront-dev/storefront/internal/client"
)

// NewLoginCmd creates the login command
func NewLoginCmd(opts *Options) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a storefront server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set STOREFRONT_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set STOREFRONT_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, opts *Options, email, password string) error {
	// Check for environment variables (useful for CI/CD)
	email = fromEnv(email, "STOREFRONT_EMAIL")
	password = fromEnv(password, "STOREFRONT_PASSWORD")

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or STOREFRONT_EMAIL env var)")
	}

	if password == "" {
		if !opts.interactive() {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or STOREFRONT_PASSWORD env var)")
		}
		var err error
		if password, err = promptPassword(); err != nil {
			return err
		}
	}

	actions, apiClient, err := opts.session()
	if err != nil {
		return err
	}

	server := opts.serverURL()
	fmt.Fprintf(opts.Out, "Logging in to %s...\n", server)

	result := actions.LoginUser(cmd.Context(), client.Credentials{Email: email, Password: password})
	if !result.Success {
		_ = opts.printState(actions.Store().State())
		return fmt.Errorf("login failed: %s", result.Message)
	}

	if err := opts.Store.SaveSession(server, apiClient.SessionToken()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Fprintln(opts.Out, "✓ Login successful!")
	return opts.printState(actions.Store().State())
}
