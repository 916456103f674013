package shopline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const maxResponseBody = 1 << 20

// HTTPError is returned when the platform answers with a non-2xx status.
// Body carries the upstream payload verbatim.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, string(e.Body))
}

// Upstream is the HTTP client used for every call to the platform.
type Upstream struct {
	client  *http.Client
	timeout time.Duration
}

func NewUpstream(timeout time.Duration) *Upstream {
	return &Upstream{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// context bounds ctx by the upstream timeout and carries the client for
// golang.org/x/oauth2, which otherwise falls back to http.DefaultClient.
func (u *Upstream) context(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, u.client)
	if u.timeout > 0 {
		return context.WithTimeout(ctx, u.timeout)
	}
	return context.WithCancel(ctx)
}

// bearerGet issues a GET authenticated with accessToken and returns the
// status code and body.
func (u *Upstream) bearerGet(ctx context.Context, accessToken, url string) (int, []byte, error) {
	ctx, cancel := u.context(ctx)
	defer cancel()

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// getJSON is bearerGet for endpoints whose 2xx body decodes into out.
func (u *Upstream) getJSON(ctx context.Context, accessToken, url string, out any) error {
	status, body, err := u.bearerGet(ctx, accessToken, url)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return &HTTPError{StatusCode: status, Body: body}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
