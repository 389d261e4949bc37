package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// TokenIO is one input or output of a token-bearing transaction as reported
// by the bsv21 overlay.
type TokenIO struct {
	Outpoint string `json:"outpoint"`
	Amount   uint64 `json:"amt"`
}

// TokenTx is the per-transaction token data for a single token id.
type TokenTx struct {
	Inputs  []TokenIO `json:"inputs"`
	Outputs []TokenIO `json:"outputs"`
}

// TokenDetails is the immutable metadata for a token id.
type TokenDetails struct {
	ID     string `json:"id"`
	Sym    string `json:"sym"`
	Icon   string `json:"icon"`
	Dec    uint8  `json:"dec"`
	Supply uint64 `json:"supply"`
}

// Bsv21Service resolves fungible-token overlay data by token id.
type Bsv21Service struct {
	c *Client
}

// Bsv21 returns the client wrapping c's transport as a Bsv21Service.
func (c *Client) Bsv21() *Bsv21Service {
	return &Bsv21Service{c: c}
}

// Tx fetches the per-transaction token data for tokenID/txid. A 404 means
// that input or output is not (yet) confirmed to carry tokenID; Bsv21's
// summarize treats that as "pending", not a hard error.
func (s *Bsv21Service) Tx(ctx context.Context, tokenID, txid string) (*TokenTx, error) {
	b, err := s.c.get(ctx, "/api/bsv21/"+tokenID+"/tx/"+txid)
	if err != nil {
		return nil, fmt.Errorf("bsv21 tx %s/%s: %w", tokenID, txid, err)
	}
	var tt TokenTx
	if err := json.Unmarshal(b, &tt); err != nil {
		return nil, fmt.Errorf("bsv21 tx %s/%s: decode: %w", tokenID, txid, err)
	}
	return &tt, nil
}

// Details fetches the immutable token details for tokenID.
func (s *Bsv21Service) Details(ctx context.Context, tokenID string) (*TokenDetails, error) {
	b, err := s.c.get(ctx, "/api/bsv21/"+tokenID)
	if err != nil {
		return nil, fmt.Errorf("bsv21 details %s: %w", tokenID, err)
	}
	var td TokenDetails
	if err := json.Unmarshal(b, &td); err != nil {
		return nil, fmt.Errorf("bsv21 details %s: decode: %w", tokenID, err)
	}
	return &td, nil
}
