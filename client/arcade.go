package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// TxStatus mirrors the arcade broadcast status enum.
type TxStatus string

const (
	StatusUnknown              TxStatus = "UNKNOWN"
	StatusReceived             TxStatus = "RECEIVED"
	StatusSentToNetwork        TxStatus = "SENT_TO_NETWORK"
	StatusAcceptedByNetwork    TxStatus = "ACCEPTED_BY_NETWORK"
	StatusSeenOnNetwork        TxStatus = "SEEN_ON_NETWORK"
	StatusDoubleSpendAttempted TxStatus = "DOUBLE_SPEND_ATTEMPTED"
	StatusRejected             TxStatus = "REJECTED"
	StatusMined                TxStatus = "MINED"
	StatusImmutable            TxStatus = "IMMUTABLE"
)

// BroadcastResponse is the arcade response to a submitted transaction.
type BroadcastResponse struct {
	Txid        string   `json:"txid"`
	TxStatus    TxStatus `json:"txStatus"`
	BlockHash   *string  `json:"blockHash,omitempty"`
	BlockHeight *uint32  `json:"blockHeight,omitempty"`
	MerklePath  []byte   `json:"merklePath,omitempty"`
	ExtraInfo   *string  `json:"extraInfo,omitempty"`
}

// ArcadeService broadcasts raw transactions.
type ArcadeService struct {
	c *Client
}

// Arcade returns the client wrapping c's transport as an ArcadeService.
func (c *Client) Arcade() *ArcadeService {
	return &ArcadeService{c: c}
}

// BroadcastOptions carries the optional callback headers arcade supports.
type BroadcastOptions struct {
	CallbackURL   string
	CallbackToken string
}

// Broadcast submits rawTx for network relay.
func (s *ArcadeService) Broadcast(ctx context.Context, rawTx []byte, opts *BroadcastOptions) (*BroadcastResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.c.BaseURL+"/api/arcade/tx", bytes.NewReader(rawTx))
	if err != nil {
		return nil, fmt.Errorf("arcade broadcast: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if opts != nil {
		if opts.CallbackURL != "" {
			req.Header.Set("X-CallbackUrl", opts.CallbackURL)
		}
		if opts.CallbackToken != "" {
			req.Header.Set("X-CallbackToken", opts.CallbackToken)
		}
	}
	resp, err := s.c.doRequest(req)
	if err != nil {
		return nil, fmt.Errorf("arcade broadcast: %w", err)
	}
	defer resp.Body.Close()
	body, err := readAll(resp)
	if err != nil {
		return nil, fmt.Errorf("arcade broadcast: %w", err)
	}
	var out BroadcastResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("arcade broadcast: decode: %w", err)
	}
	return &out, nil
}
