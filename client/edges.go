package client

import "context"

// EdgeService manages the edge relation.
type EdgeService struct {
	c *Client
}

// maxInsertBatch matches the server's per-request edge limit.
const maxInsertBatch = 100_000

// Insert appends edges, splitting them into server-sized requests. It
// returns the number of rows inserted.
func (s *EdgeService) Insert(ctx context.Context, edges []Edge) (int64, error) {
	var total int64
	for start := 0; start < len(edges); start += maxInsertBatch {
		end := min(start+maxInsertBatch, len(edges))

		var resp struct {
			Inserted int64 `json:"inserted"`
		}
		body := map[string]any{"edges": edges[start:end]}
		if err := s.c.post(ctx, "/api/v1/edges", body, &resp); err != nil {
			return total, err
		}
		total += resp.Inserted
	}
	return total, nil
}

// Count returns the number of edges.
func (s *EdgeService) Count(ctx context.Context) (int64, error) {
	var resp struct {
		Count int64 `json:"count"`
	}
	if err := s.c.get(ctx, "/api/v1/edges/count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Clear deletes every edge and returns how many were removed.
func (s *EdgeService) Clear(ctx context.Context) (int64, error) {
	var resp struct {
		Deleted int64 `json:"deleted"`
	}
	if err := s.c.del(ctx, "/api/v1/edges", &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}
