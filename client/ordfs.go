package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// Metadata is the OrdFS response shape for an inscribed outpoint, grounded
// on the 1sat ordfs.Response wire shape: origin/sequence/parent/map describe
// an ordinal's provenance, contentType/contentLength describe its payload.
type Metadata struct {
	Outpoint      string            `json:"outpoint"`
	Origin        *string           `json:"origin,omitempty"`
	Sequence      uint64            `json:"sequence"`
	ContentType   string            `json:"contentType"`
	ContentLength int64             `json:"contentLength"`
	Parent        *string           `json:"parent,omitempty"`
	Map           map[string]string `json:"map,omitempty"`
}

// Content is the response to a raw-content fetch.
type Content struct {
	ContentType string
	Body        []byte
	Outpoint    string
	Origin      string
	Sequence    uint64
	Map         map[string]string
	Parent      string
}

// OrdFSService resolves inscription metadata and content by outpoint.
type OrdFSService struct {
	c *Client
}

// OrdFS returns the client wrapping c's transport as an OrdFSService.
func (c *Client) OrdFS() *OrdFSService {
	return &OrdFSService{c: c}
}

// Metadata fetches the metadata for outpoint (optionally "<outpoint>:<seq>").
// A 404 means the outpoint is not known to OrdFS, surfaced as *HTTPError so
// callers can recover via IsNotFound.
func (s *OrdFSService) Metadata(ctx context.Context, outpoint string) (*Metadata, error) {
	b, err := s.c.get(ctx, "/api/ordfs/metadata/"+outpoint)
	if err != nil {
		return nil, fmt.Errorf("ordfs metadata %s: %w", outpoint, err)
	}
	var m Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("ordfs metadata %s: decode: %w", outpoint, err)
	}
	return &m, nil
}

// Fetch fetches the raw content bytes and provenance headers for outpoint.
func (s *OrdFSService) Fetch(ctx context.Context, outpoint string) (*Content, error) {
	req, err := s.c.newGet(ctx, "/content/"+outpoint)
	if err != nil {
		return nil, fmt.Errorf("ordfs content %s: %w", outpoint, err)
	}
	resp, err := s.c.doRequest(req)
	if err != nil {
		return nil, fmt.Errorf("ordfs content %s: %w", outpoint, err)
	}
	defer resp.Body.Close()
	body, err := readAll(resp)
	if err != nil {
		return nil, fmt.Errorf("ordfs content %s: read: %w", outpoint, err)
	}
	out := &Content{
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Outpoint:    resp.Header.Get("X-Outpoint"),
		Origin:      resp.Header.Get("X-Origin"),
		Parent:      resp.Header.Get("X-Parent"),
	}
	if raw := resp.Header.Get("X-Ord-Seq"); raw != "" {
		var seq uint64
		fmt.Sscanf(raw, "%d", &seq)
		out.Sequence = seq
	}
	if raw := resp.Header.Get("X-Map"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &out.Map)
	}
	return out, nil
}
