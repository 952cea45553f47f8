package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/storefront-dev/storefront/internal/cli/commands"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree around opts
func NewRootCmd(opts *commands.Options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront - account tools for the storefront API",
		Long: `Storefront CLI - register, sign in and check your session against a
storefront server.

The session cookie is kept in the OS keyring, one per server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.Server, "server", "", "Server URL (or set STOREFRONT_URL, default "+commands.DefaultServerURL+")")
	rootCmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "Print the auth state as JSON")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(opts.Out, "storefront version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewRegisterCmd(opts))
	rootCmd.AddCommand(commands.NewLoginCmd(opts))
	rootCmd.AddCommand(commands.NewLogoutCmd(opts))
	rootCmd.AddCommand(commands.NewWhoamiCmd(opts))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	if err := NewRootCmd(commands.NewOptions()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
