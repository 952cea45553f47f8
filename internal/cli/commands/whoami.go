package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storefront-dev/storefront/internal/authstate"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(cmd, opts)
		},
	}
}

func runWhoami(cmd *cobra.Command, opts *Options) error {
	actions, _, err := opts.session()
	if err != nil {
		return err
	}

	_, err = actions.CheckAuth(cmd.Context())
	switch {
	case errors.Is(err, authstate.ErrNotAuthenticated):
		// the saved session is dead, drop it
		if err := opts.Store.DeleteSession(opts.serverURL()); err != nil {
			return err
		}
		_ = opts.printState(actions.Store().State())
		return fmt.Errorf("not logged in. Please run 'storefront login' first")
	case err != nil:
		return fmt.Errorf("could not check session with %s: %w", opts.serverURL(), err)
	}

	return opts.printState(actions.Store().State())
}
