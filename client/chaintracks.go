package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// Header is a block header summary as reported by the chaintracks endpoint.
type Header struct {
	Height     uint32 `json:"height"`
	Hash       string `json:"hash"`
	MerkleRoot string `json:"merkleRoot"`
}

// ChaintracksService reports chain tip and header information.
type ChaintracksService struct {
	c *Client
}

// Chaintracks returns the client wrapping c's transport as a
// ChaintracksService.
func (c *Client) Chaintracks() *ChaintracksService {
	return &ChaintracksService{c: c}
}

// Tip returns the current chain tip header, used by the stream loop to
// snapshot currentHeight before opening the owner subscription.
func (s *ChaintracksService) Tip(ctx context.Context) (*Header, error) {
	b, err := s.c.get(ctx, "/api/chaintracks/tip")
	if err != nil {
		return nil, fmt.Errorf("chaintracks tip: %w", err)
	}
	var h Header
	if err := json.Unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("chaintracks tip: decode: %w", err)
	}
	return &h, nil
}

// HeaderAtHeight returns the header at a specific height.
func (s *ChaintracksService) HeaderAtHeight(ctx context.Context, height uint32) (*Header, error) {
	b, err := s.c.get(ctx, fmt.Sprintf("/api/chaintracks/header/height/%d", height))
	if err != nil {
		return nil, fmt.Errorf("chaintracks header %d: %w", height, err)
	}
	var h Header
	if err := json.Unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("chaintracks header %d: decode: %w", height, err)
	}
	return &h, nil
}

// Headers returns count raw 80-byte headers starting at height, concatenated.
func (s *ChaintracksService) Headers(ctx context.Context, height uint32, count uint32) ([]byte, error) {
	b, err := s.c.get(ctx, fmt.Sprintf("/api/chaintracks/headers?height=%d&count=%d", height, count))
	if err != nil {
		return nil, fmt.Errorf("chaintracks headers %d+%d: %w", height, count, err)
	}
	return b, nil
}
