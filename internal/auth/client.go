// Package auth is a thin client for the account backend. It is
// independent of the contract core; callers that do not configure a
// base URL never construct it.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type signupRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	WalletAddress string `json:"walletAddress"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the backend's successful auth response.
type Session struct {
	Token         string `json:"token"`
	WalletAddress string `json:"walletAddress,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

// Signup registers a new account bound to a wallet address.
func (c *Client) Signup(ctx context.Context, email, password, walletAddress string) (Session, error) {
	body, _ := json.Marshal(signupRequest{Email: email, Password: password, WalletAddress: walletAddress})
	return c.post(ctx, "/api/auth/signup", body)
}

// Signin authenticates an existing account.
func (c *Client) Signin(ctx context.Context, email, password string) (Session, error) {
	body, _ := json.Marshal(signinRequest{Email: email, Password: password})
	return c.post(ctx, "/api/auth/signin", body)
}

func (c *Client) post(ctx context.Context, path string, body []byte) (Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return Session{}, err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var payload errorResponse
		if err := json.NewDecoder(res.Body).Decode(&payload); err == nil && payload.Error != "" {
			return Session{}, fmt.Errorf("auth %s: %s", path, payload.Error)
		}
		return Session{}, fmt.Errorf("auth %s: http %d", path, res.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(res.Body).Decode(&session); err != nil {
		return Session{}, err
	}
	return session, nil
}
