package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "storefront-cli"
)

// ErrNoSession is returned when no session is saved for a server
var ErrNoSession = errors.New("not logged in. Please run 'storefront login' first")

// getKeyringKey returns a unique key for storing sessions per server
func getKeyringKey(serverURL string) string {
	return fmt.Sprintf("session-%s", serverURL)
}

// SaveSession persists the session token in the OS keychain/credential manager
func SaveSession(serverURL, token string) error {
	key := getKeyringKey(serverURL)
	if err := keyring.Set(service, key, token); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadSession retrieves the session token from the OS keychain/credential manager
func LoadSession(serverURL string) (string, error) {
	key := getKeyringKey(serverURL)
	token, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	return token, nil
}

// DeleteSession removes the session token from the OS keychain/credential manager
func DeleteSession(serverURL string) error {
	key := getKeyringKey(serverURL)
	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
