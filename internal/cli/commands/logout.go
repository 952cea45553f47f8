package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd, opts)
		},
	}
}

func runLogout(cmd *cobra.Command, opts *Options) error {
	actions, _, err := opts.session()
	if err != nil {
		return err
	}

	server := opts.serverURL()
	if err := actions.LogoutUser(cmd.Context()); err != nil {
		fmt.Fprintf(opts.Out, "Warning: server logout failed: %v\n", err)
	}

	// The local session goes whatever the server said
	if err := opts.Store.DeleteSession(server); err != nil {
		return err
	}

	fmt.Fprintln(opts.Out, "✓ Logged out")
	return opts.printState(actions.Store().State())
}
