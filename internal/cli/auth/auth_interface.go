package auth

// SessionStore defines the interface for session storage operations
// This allows us to mock the keyring in tests
type SessionStore interface {
	SaveSession(serverURL, token string) error
	LoadSession(serverURL string) (string, error)
	DeleteSession(serverURL string) error
}

// defaultSessionStore implements SessionStore using the OS keyring
type defaultSessionStore struct{}

var Default SessionStore = &defaultSessionStore{}

func (d *defaultSessionStore) SaveSession(serverURL, token string) error {
	return SaveSession(serverURL, token)
}

func (d *defaultSessionStore) LoadSession(serverURL string) (string, error) {
	return LoadSession(serverURL)
}

func (d *defaultSessionStore) DeleteSession(serverURL string) error {
	return DeleteSession(serverURL)
}
