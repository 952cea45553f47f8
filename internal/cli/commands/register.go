package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storefront-dev/storefront/internal/client"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd(opts *Options) *cobra.Command {
	var userName, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a storefront account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, opts, userName, email, password)
		},
	}

	cmd.Flags().StringVar(&userName, "username", "", "User name (will prompt if not provided)")
	cmd.Flags().StringVar(&email, "email", "", "Email address (or set STOREFRONT_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set STOREFRONT_PASSWORD, will prompt if not provided)")

	return cmd
}

func runRegister(cmd *cobra.Command, opts *Options, userName, email, password string) error {
	email = fromEnv(email, "STOREFRONT_EMAIL")
	password = fromEnv(password, "STOREFRONT_PASSWORD")

	var err error
	if userName == "" {
		if !opts.interactive() {
			return fmt.Errorf("user name is required in non-interactive mode (use --username flag)")
		}
		if userName, err = promptText("User name"); err != nil {
			return err
		}
	}
	if email == "" {
		if !opts.interactive() {
			return fmt.Errorf("email is required (use --email flag or STOREFRONT_EMAIL env var)")
		}
		if email, err = promptText("Email"); err != nil {
			return err
		}
	}
	if password == "" {
		if !opts.interactive() {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or STOREFRONT_PASSWORD env var)")
		}
		if password, err = promptPassword(); err != nil {
			return err
		}
	}

	actions, _, err := opts.session()
	if err != nil {
		return err
	}

	fmt.Fprintf(opts.Out, "Registering %s at %s...\n", email, opts.serverURL())
	result := actions.RegisterUser(cmd.Context(), client.Credentials{
		UserName: userName,
		Email:    email,
		Password: password,
	})
	if !result.Success {
		_ = opts.printState(actions.Store().State())
		return fmt.Errorf("registration failed: %s", result.Message)
	}

	fmt.Fprintln(opts.Out, "✓ Registration successful! Run 'storefront login' to sign in.")
	return nil
}
