package heygen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ProxyTokenSource fetches session tokens from the credential proxy, the way a
// browser client does. It implements avatar.TokenSource.
type ProxyTokenSource struct {
	URL        string // e.g. http://localhost:3000/api/get-access-token
	HTTPClient *http.Client
}

// Token requests a new session token
func (s *ProxyTokenSource) Token(ctx context.Context) (string, error) {
	httpClient := s.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error fetching access token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return "", fmt.Errorf("error reading access token: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", fmt.Errorf("empty access token")
	}
	return token, nil
}
