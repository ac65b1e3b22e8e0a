// Package engine talks to the external OAuth2 authorization engine this
// gateway fronts. The gateway never issues tokens itself; it only reads
// stored consent records and proxies protocol traffic.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client is an HTTP client for the engine's internal API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	retrier *retrier
}

// RetryPolicy bounds the exponential backoff used for transient engine
// failures.
type RetryPolicy struct {
	InitialMs   int
	MaxMs       int
	MaxAttempts int
}

func NewClient(baseURL, token string, timeout time.Duration, retry RetryPolicy) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
		retrier: newRetrier(retry.InitialMs, retry.MaxMs, retry.MaxAttempts),
	}
}

// ConsentRecord is the engine's stored association between a client, a
// principal, and the scopes that principal has approved for that client.
type ConsentRecord struct {
	ClientID      string   `json:"client_id"`
	PrincipalName string   `json:"principal_name"`
	GrantedScopes []string `json:"granted_scopes"`
}

// GetConsent fetches the consent record for (clientID, principal). A missing
// record is not an error; it comes back with no granted scopes.
func (c *Client) GetConsent(ctx context.Context, clientID, principal string) (*ConsentRecord, error) {
	query := url.Values{}
	query.Set("client_id", clientID)
	query.Set("principal", principal)
	endpoint := fmt.Sprintf("%s/internal/consents?%s", c.baseURL, query.Encode())

	record := &ConsentRecord{ClientID: clientID, PrincipalName: principal, GrantedScopes: []string{}}

	err := c.retrier.do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil
		case isRetryableStatus(resp):
			return retryableStatusError{status: resp.StatusCode}
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("engine returned %d", resp.StatusCode)
		}

		return json.NewDecoder(resp.Body).Decode(record)
	}, isRetryableError)
	if err != nil {
		return nil, err
	}

	return record, nil
}
