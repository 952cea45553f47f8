// Package client is the HTTP client of the storefront auth API. It keeps the
// session cookie in a cookie jar and decodes every failure into an *APIError
// so callers never look at raw response bodies.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
)

// SessionCookie is the name of the cookie carrying the session token
const SessionCookie = "token"

// Client represents an HTTP client for the storefront API
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	jar        http.CookieJar
}

// New creates a client for the server at baseURL, e.g. http://localhost:5000
func New(baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL: u,
		jar:     jar,
		// no client timeout, the caller's context bounds each call
		httpClient: &http.Client{Jar: jar},
	}, nil
}

// SetHTTPClient sets a custom HTTP client. The client's cookie jar is
// replaced with this client's so the session survives the swap.
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	httpClient.Jar = c.jar
	c.httpClient = httpClient
}

// SessionToken returns the session token currently held in the jar
func (c *Client) SessionToken() string {
	for _, cookie := range c.jar.Cookies(c.baseURL) {
		if cookie.Name == SessionCookie {
			return cookie.Value
		}
	}
	return ""
}

// SetSessionToken restores a previously saved session token
func (c *Client) SetSessionToken(token string) {
	if token == "" {
		return
	}
	c.jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	}})
}

// Credentials is the body of the register and login requests
type Credentials struct {
	UserName string `json:"userName,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the user projection returned by the server. Fields the client does
// not know about are kept in Raw.
type User struct {
	ID       string          `json:"id"`
	Email    string          `json:"email"`
	UserName string          `json:"userName"`
	Role     string          `json:"role"`
	Raw      json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the original document
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*u = User(decoded)
	u.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the original document when there is one
func (u User) MarshalJSON() ([]byte, error) {
	if len(u.Raw) > 0 {
		return u.Raw, nil
	}
	type plain User
	return json.Marshal(plain(u))
}

// AuthResponse is the body of the auth routes
type AuthResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	User    *User           `json:"user,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// Register creates an account. Registration never signs the user in.
func (c *Client) Register(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	return c.do(ctx, http.MethodPost, "/api/auth/register", creds)
}

// Login signs in; on success the session cookie is stored in the jar
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	return c.do(ctx, http.MethodPost, "/api/auth/login", Credentials{Email: creds.Email, Password: creds.Password})
}

// CheckAuth asks the server whether the session cookie is still valid
func (c *Client) CheckAuth(ctx context.Context) (*AuthResponse, error) {
	return c.do(ctx, http.MethodGet, "/api/auth/check-auth", nil)
}

// Logout ends the session; the server clears the cookie
func (c *Client) Logout(ctx context.Context) (*AuthResponse, error) {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*AuthResponse, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: KindTransport, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newServerError(resp.StatusCode, data)
	}

	var authResp AuthResponse
	if err := json.Unmarshal(data, &authResp); err != nil {
		return nil, &APIError{Kind: KindDecode, StatusCode: resp.StatusCode, Err: err}
	}
	authResp.Raw = data
	return &authResp, nil
}
