package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/auth/signin", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user@example.com", body["email"])

		json.NewEncoder(w).Encode(Session{
			Token:         "jwt-token",
			WalletAddress: "0x0000000000000000000000000000000000000001",
		})
	}))
	defer srv.Close()

	client := New(srv.URL)
	session, err := client.Signin(context.Background(), "user@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", session.Token)
	assert.Equal(t, "0x0000000000000000000000000000000000000001", session.WalletAddress)
}

func TestSignup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/signup", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "0x0000000000000000000000000000000000000002", body["walletAddress"])

		json.NewEncoder(w).Encode(Session{Token: "new-token"})
	}))
	defer srv.Close()

	client := New(srv.URL)
	session, err := client.Signup(context.Background(), "new@example.com", "secret", "0x0000000000000000000000000000000000000002")
	require.NoError(t, err)
	assert.Equal(t, "new-token", session.Token)
}

func TestSigninErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "bad credentials"})
	}))
	defer srv.Close()

	client := New(srv.URL)
	_, err := client.Signin(context.Background(), "user@example.com", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")
}

func TestSigninOpaqueError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL)
	_, err := client.Signin(context.Background(), "user@example.com", "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 502")
}
