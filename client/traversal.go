package client

import "context"

// TraversalService runs closures and bounded path queries.
type TraversalService struct {
	c *Client
}

// Closure computes the closure of req.Seeds.
func (s *TraversalService) Closure(ctx context.Context, req *ClosureRequest) (*ClosureResult, error) {
	var res ClosureResult
	if err := s.c.post(ctx, "/api/v1/closure", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// BatchClosure runs several closures in one request. Results keep request order.
func (s *TraversalService) BatchClosure(ctx context.Context, reqs []ClosureRequest) ([]ClosureResult, error) {
	var resp struct {
		Results []ClosureResult `json:"results"`
	}
	body := map[string]any{"queries": reqs}
	if err := s.c.post(ctx, "/api/v1/closure/batch", body, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Paths computes the bounded path subgraph between req.Sources and req.Destinations.
func (s *TraversalService) Paths(ctx context.Context, req *PathRequest) (*PathResult, error) {
	var res PathResult
	if err := s.c.post(ctx, "/api/v1/paths", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
