package edge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/andresl123/food-rescue-live-sub000/authapi"
)

// AuthClient calls the issuer on behalf of the renewal filter
type AuthClient struct {
	baseURL    string
	httpClient *http.Client
}

type AuthClientOption func(*AuthClient)

func WithAuthHTTPClient(client *http.Client) AuthClientOption {
	return func(c *AuthClient) {
		c.httpClient = client
	}
}

func NewAuthClient(baseURL string, opts ...AuthClientOption) *AuthClient {
	c := &AuthClient{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh presents a refresh token to the issuer and returns the rotated
// pair. Any non-200 response is a rejection: the caller treats the refresh
// token as spent either way.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (*authapi.TokenPairResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authapi.RefreshPath, bytes.NewReader(nil))
	if err != nil {
		return nil, fmt.Errorf("[AuthClient Refresh] failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+refreshToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[AuthClient Refresh] request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("[AuthClient Refresh] issuer responded %d", resp.StatusCode)
	}

	var pair authapi.TokenPairResponse
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return nil, fmt.Errorf("[AuthClient Refresh] failed to decode response: %w", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return nil, fmt.Errorf("[AuthClient Refresh] issuer returned an incomplete pair")
	}
	return &pair, nil
}
