// Package api fetches remote import feeds: plain JSON documents hosted at a
// caller-supplied URL.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tennis-tracker/internal/constants"

	"github.com/valyala/fasthttp"
)

type FeedClient struct {
	client *fasthttp.Client
}

func NewFeedClient() *FeedClient {
	return &FeedClient{
		client: &fasthttp.Client{
			MaxConnsPerHost:     10,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// PlayerRow is one player in the remote players feed.
type PlayerRow struct {
	Name          string  `json:"name"`
	SinglesRating float64 `json:"singles_rating"`
	DoublesRating float64 `json:"doubles_rating"`

	// "y" or "n"
	CurrentTeam string `json:"current_team"`
}

// MatchRow is one match in the remote matches feed. Participants are player
// names, resolved against the existing player store; Score is a set list like
// "6-4, 6-4".
type MatchRow struct {
	Winner1 string `json:"winner1"`
	Winner2 string `json:"winner2"`
	Loser1  string `json:"loser1"`
	Loser2  string `json:"loser2"`
	Score   string `json:"score"`
}

func (c *FeedClient) GetPlayers(ctx context.Context, url string) ([]PlayerRow, error) {
	return doRequest[[]PlayerRow](ctx, c, url)
}

func (c *FeedClient) GetMatches(ctx context.Context, url string) ([]MatchRow, error) {
	return doRequest[[]MatchRow](ctx, c, url)
}

// GetRaw returns the undecoded response body; full-snapshot imports decide
// the document shape themselves.
func (c *FeedClient) GetRaw(ctx context.Context, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := c.client.DoTimeout(req, resp, timeoutFor(ctx)); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode(), url)
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

func doRequest[T any](ctx context.Context, c *FeedClient, url string) (T, error) {
	var out T
	body, err := c.GetRaw(ctx, url)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return out, nil
}

func timeoutFor(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return time.Until(deadline)
	}
	return constants.ExternalAPITimeout
}
