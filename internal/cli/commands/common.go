package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/storefront-dev/storefront/internal/authstate"
	"github.com/storefront-dev/storefront/internal/cli/auth"
	"github.com/storefront-dev/storefront/internal/client"
)

// DefaultServerURL is used when neither --server nor STOREFRONT_URL is set
const DefaultServerURL = "http://localhost:5000"

// Options are shared by every command
type Options struct {
	Server     string
	JSON       bool
	Store      auth.SessionStore
	Out        io.Writer
	HTTPClient *http.Client
	// Interactive reports whether prompts may be shown
	Interactive func() bool
}

// NewOptions returns options backed by the OS keyring and the terminal
func NewOptions() *Options {
	return &Options{
		Store: auth.Default,
		Out:   os.Stdout,
		Interactive: func() bool {
			return term.IsTerminal(int(syscall.Stdin))
		},
	}
}

// serverURL resolves the server from the flag, then STOREFRONT_URL
func (o *Options) serverURL() string {
	if o.Server != "" {
		return strings.TrimRight(o.Server, "/")
	}
	if env := os.Getenv("STOREFRONT_URL"); env != "" {
		return strings.TrimRight(env, "/")
	}
	return DefaultServerURL
}

// session builds an API client carrying the saved session cookie, and the
// actions bound to a fresh store
func (o *Options) session() (*authstate.Actions, *client.Client, error) {
	server := o.serverURL()

	apiClient, err := client.New(server)
	if err != nil {
		return nil, nil, err
	}
	if o.HTTPClient != nil {
		apiClient.SetHTTPClient(o.HTTPClient)
	}

	token, err := o.Store.LoadSession(server)
	switch {
	case err == nil:
		apiClient.SetSessionToken(token)
	case errors.Is(err, auth.ErrNoSession):
	default:
		return nil, nil, err
	}

	return authstate.NewActions(apiClient, authstate.NewStore()), apiClient, nil
}

func (o *Options) interactive() bool {
	return o.Interactive != nil && o.Interactive()
}

// printState writes the auth state, as JSON with --json
func (o *Options) printState(state authstate.State) error {
	if o.JSON {
		enc := json.NewEncoder(o.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	if !state.IsAuthenticated || state.User == nil {
		fmt.Fprintln(o.Out, "  Status: signed out")
	} else {
		fmt.Fprintln(o.Out, "  Status: signed in")
		fmt.Fprintf(o.Out, "  User: %s (%s)\n", state.User.UserName, state.User.Email)
		if state.User.Role != "" {
			fmt.Fprintf(o.Out, "  Role: %s\n", state.User.Role)
		}
	}
	if state.Error != nil {
		fmt.Fprintf(o.Out, "  Error: %s\n", *state.Error)
	}
	return nil
}

// fromEnv returns value, or the environment variable when value is empty
func fromEnv(value, env string) string {
	if value != "" {
		return value
	}
	return os.Getenv(env)
}

// promptText asks for a line of input
func promptText(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("%s is required", strings.ToLower(label))
			}
			return nil
		},
	}
	value, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("input cancelled: %w", err)
	}
	return strings.TrimSpace(value), nil
}

// promptPassword asks for a password without echoing it
func promptPassword() (string, error) {
	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}
