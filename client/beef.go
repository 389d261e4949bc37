package client

import (
	"context"
	"fmt"
)

// BeefService fetches a transaction in beef encoding (a self-contained
// transaction with ancestor merkle proofs), or its raw tx / merkle-path
// components individually.
type BeefService struct {
	c *Client
}

// Beef returns the client wrapping c's transport as a BeefService.
func (c *Client) Beef() *BeefService {
	return &BeefService{c: c}
}

// Get fetches the full beef-encoded bytes for txid.
func (s *BeefService) Get(ctx context.Context, txid string) ([]byte, error) {
	b, err := s.c.get(ctx, "/api/beef/"+txid)
	if err != nil {
		return nil, fmt.Errorf("beef %s: %w", txid, err)
	}
	return b, nil
}

// RawTx fetches just the raw transaction bytes for txid, with no proofs.
func (s *BeefService) RawTx(ctx context.Context, txid string) ([]byte, error) {
	b, err := s.c.get(ctx, "/api/beef/"+txid+"/raw")
	if err != nil {
		return nil, fmt.Errorf("beef raw %s: %w", txid, err)
	}
	return b, nil
}

// Proof fetches just the merkle-path bytes for txid.
func (s *BeefService) Proof(ctx context.Context, txid string) ([]byte, error) {
	b, err := s.c.get(ctx, "/api/beef/"+txid+"/proof")
	if err != nil {
		return nil, fmt.Errorf("beef proof %s: %w", txid, err)
	}
	return b, nil
}
