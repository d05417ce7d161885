package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// MicrosoftClient requests bearer tokens from Microsoft's identity
// platform using the client-credentials grant. That is the only OAuth
// flow this module ever drives — Microsoft Graph's application-permission
// sendMail call — so unlike a general-purpose OAuth library this client
// carries no authorization-code flow, no multi-provider factory, and no
// JWT/JWKS validation; nothing in the module ever receives a token to
// validate, only ever requests one to present.
type MicrosoftClient struct {
	ClientId     string
	ClientSecret string
	TenantId     string
	TokenUrl     string

	httpClient *http.Client
}

// NewMicrosoftClient builds a client scoped to tenantId's token endpoint.
func NewMicrosoftClient(clientId, clientSecret, tenantId string) *MicrosoftClient {
	return &MicrosoftClient{
		ClientId:     clientId,
		ClientSecret: clientSecret,
		TenantId:     tenantId,
		TokenUrl:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantId),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Token requests a client-credentials access token scoped to Microsoft
// Graph's default application permissions.
func (client *MicrosoftClient) Token() (*TokenResponse, error) {
	httpClient := client.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	response, err := httpClient.PostForm(client.TokenUrl, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {client.ClientId},
		"client_secret": {client.ClientSecret},
		"scope":         {"https://graph.microsoft.com/.default"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request token: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token request failed with status %d: %s", response.StatusCode, string(body))
	}

	var tokenResponse TokenResponse
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResponse.AccessToken == "" {
		return nil, errors.New("access token not found in response")
	}

	tokenResponse.IssuedAt = time.Now()
	if tokenResponse.ExpiresIn > 0 {
		tokenResponse.ExpiresAt = tokenResponse.IssuedAt.Add(time.Duration(tokenResponse.ExpiresIn) * time.Second)
	}

	return &tokenResponse, nil
}
