package allegro

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const acceptHeader = "application/vnd.allegro.public.v1+json"

// Client talks to the marketplace REST and OAuth endpoints. Timeouts are a
// property of the underlying http.Client.
type Client struct {
	httpClient *http.Client
	apiBaseURL string
	authBaseURL string
}

func NewClient(apiBaseURL, authBaseURL string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		apiBaseURL:  strings.TrimRight(apiBaseURL, "/"),
		authBaseURL: strings.TrimRight(authBaseURL, "/"),
	}
}

// FetchReadyOrders returns one page of checkout forms awaiting processing,
// newest first.
func (c *Client) FetchReadyOrders(ctx context.Context, token string, limit, offset int) (*CheckoutFormsResponse, error) {
	path := "/order/checkout-forms?status=READY_FOR_PROCESSING&sort=-lineItems.boughtAt" +
		"&limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)

	var response CheckoutFormsResponse
	if err := c.getJSON(ctx, token, path, &response); err != nil {
		return nil, fmt.Errorf("fetch checkout forms: %w", err)
	}
	return &response, nil
}

// FetchOfferDetails returns the full offer document for one product offer.
func (c *Client) FetchOfferDetails(ctx context.Context, token, offerID string) (*OfferDetails, error) {
	var details OfferDetails
	if err := c.getJSON(ctx, token, "/sale/product-offers/"+url.PathEscape(offerID), &details); err != nil {
		return nil, fmt.Errorf("fetch offer details %s: %w", offerID, err)
	}
	return &details, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// RefreshToken performs the refresh-token grant against the OAuth endpoint
// using client credentials as basic auth.
func (c *Client) RefreshToken(ctx context.Context, clientID, clientSecret, refreshToken string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.authBaseURL+"/auth/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(clientID, clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %s", resp.Status)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &token, nil
}

func (c *Client) getJSON(ctx context.Context, token, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", acceptHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned %s", path, resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}
