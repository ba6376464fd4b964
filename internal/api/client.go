package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Row is one positionally-ordered record as returned by the stats provider.
// Field meaning is fixed per entity type and parsed by index on the caller
// side; a change in the provider's column order is not detectable here.
type Row []any

// Client talks to the external stats provider. Retrying is owned by the
// client's RetryPolicy, so callers see either a result, a permanent error,
// or ErrProviderUnavailable once the budget is spent.
type Client struct {
	baseURL string
	http    *resty.Client
	retry   RetryPolicy
}

// NewClient creates a provider client. The timeout applies per HTTP attempt
// and runs through the same retry path as other transient failures.
func NewClient(baseURL, apiKey string, timeout time.Duration, retry RetryPolicy) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		retry:   retry,
	}

	client.http = resty.New().
		SetHeader("User-Agent", "statsync/1.0").
		SetHeader("X-API-Key", apiKey).
		SetTimeout(timeout)

	return client
}

// FetchTeamIndex returns the abbreviations of every team in the league.
func (c *Client) FetchTeamIndex(ctx context.Context) ([]string, error) {
	var result struct {
		Teams []string `json:"teams"`
	}
	if err := c.get(ctx, "v1/teams", nil, &result); err != nil {
		return nil, err
	}
	return result.Teams, nil
}

// FetchTeam returns one team's row:
// [abbr, name, city, conference, division, stadium, wins, losses, ties].
func (c *Client) FetchTeam(ctx context.Context, abbr string) (Row, error) {
	var result struct {
		Row Row `json:"row"`
	}
	endpoint := fmt.Sprintf("v1/teams/%s", abbr)
	if err := c.get(ctx, endpoint, nil, &result); err != nil {
		return nil, err
	}
	return result.Row, nil
}

// FetchRoster returns one team's roster rows:
// [providerID, name, position, jerseyNumber, status].
func (c *Client) FetchRoster(ctx context.Context, abbr string) ([]Row, error) {
	var result struct {
		Rows []Row `json:"rows"`
	}
	endpoint := fmt.Sprintf("v1/teams/%s/roster", abbr)
	if err := c.get(ctx, endpoint, nil, &result); err != nil {
		return nil, err
	}
	return result.Rows, nil
}

// FetchSeasonWeeks returns the number of schedule weeks in a season.
func (c *Client) FetchSeasonWeeks(ctx context.Context, season int) (int, error) {
	var result struct {
		Weeks int `json:"weeks"`
	}
	endpoint := fmt.Sprintf("v1/seasons/%d/weeks", season)
	if err := c.get(ctx, endpoint, nil, &result); err != nil {
		return 0, err
	}
	return result.Weeks, nil
}

// FetchScheduleWeek returns one week's game rows:
// [providerID, week, kickoff, homeAbbr, awayAbbr, homeScore, awayScore, final].
func (c *Client) FetchScheduleWeek(ctx context.Context, season, week int) ([]Row, error) {
	var result struct {
		Rows []Row `json:"rows"`
	}
	endpoint := fmt.Sprintf("v1/seasons/%d/schedule", season)
	params := map[string]string{"week": fmt.Sprintf("%d", week)}
	if err := c.get(ctx, endpoint, params, &result); err != nil {
		return nil, err
	}
	return result.Rows, nil
}

// get performs a GET request with retries and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, endpoint string, params map[string]string, out any) error {
	url := c.buildURL(endpoint)

	return c.retry.Do(ctx, func() error {
		req := c.http.R().SetContext(ctx)
		if params != nil {
			req.SetQueryParams(params)
		}

		resp, err := req.Get(url)
		if err != nil {
			return err
		}
		if !resp.IsSuccess() {
			return &ProviderError{StatusCode: resp.StatusCode(), Status: resp.Status()}
		}

		// A body that does not decode is a permanent error, not a retry case.
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("failed to parse provider response from %s: %w", endpoint, err)
		}
		return nil
	})
}

// buildURL constructs the full URL for an endpoint
func (c *Client) buildURL(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "/")
	return fmt.Sprintf("%s/%s", c.baseURL, endpoint)
}
