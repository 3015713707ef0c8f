package client

import (
	"context"
	"net/url"
	"strconv"
)

// RunService reads the run log.
type RunService struct {
	c *Client
}

// List returns the most recent runs, newest first. A zero limit takes the
// server default.
func (s *RunService) List(ctx context.Context, limit int) ([]Run, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Runs []Run `json:"runs"`
	}
	if err := s.c.get(ctx, "/api/v1/runs", params, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// Get returns a single run by ID.
func (s *RunService) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	if err := s.c.get(ctx, "/api/v1/runs/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}
