package oauth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewMicrosoftClient(t *testing.T) {
	client := NewMicrosoftClient("test-client-id", "test-secret", "test-tenant")

	if client.ClientId != "test-client-id" {
		t.Errorf("expected ClientId 'test-client-id', got %q", client.ClientId)
	}
	if client.ClientSecret != "test-secret" {
		t.Errorf("expected ClientSecret 'test-secret', got %q", client.ClientSecret)
	}
	if client.TenantId != "test-tenant" {
		t.Errorf("expected TenantId 'test-tenant', got %q", client.TenantId)
	}

	expectedTokenUrl := "https://login.microsoftonline.com/test-tenant/oauth2/v2.0/token"
	if client.TokenUrl != expectedTokenUrl {
		t.Errorf("expected TokenUrl %q, got %q", expectedTokenUrl, client.TokenUrl)
	}
	if client.httpClient.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %v", client.httpClient.Timeout)
	}
}

func TestMicrosoftClientToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing token request form: %v", err)
		}
		if got := r.FormValue("grant_type"); got != "client_credentials" {
			t.Errorf("expected client_credentials grant, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fake-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	client := NewMicrosoftClient("id", "secret", "tenant")
	client.TokenUrl = srv.URL

	token, err := client.Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token.AccessToken != "fake-token" {
		t.Errorf("expected access token 'fake-token', got %q", token.AccessToken)
	}
	if token.IsExpired() {
		t.Error("freshly issued token reported as expired")
	}
}

func TestMicrosoftClientTokenRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer srv.Close()

	client := NewMicrosoftClient("id", "secret", "tenant")
	client.TokenUrl = srv.URL

	if _, err := client.Token(); err == nil {
		t.Error("expected an error for a non-200 token response, got nil")
	}
}

func TestTokenResponseIsExpired(t *testing.T) {
	token := &TokenResponse{ExpiresAt: time.Now().Add(-time.Minute)}
	if !token.IsExpired() {
		t.Error("expected a token with a past ExpiresAt to be expired")
	}

	token = &TokenResponse{ExpiresAt: time.Now().Add(time.Minute)}
	if token.IsExpired() {
		t.Error("expected a token with a future ExpiresAt to not be expired")
	}
}
