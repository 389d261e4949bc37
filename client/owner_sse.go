package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// SyncEvent is one delivered message on the owner sync stream.
type SyncEvent struct {
	Outpoint  string  `json:"outpoint"`
	Score     float64 `json:"score"`
	SpendTxid *string `json:"spendTxid,omitempty"`
}

// OwnerService opens the owner sync event stream.
type OwnerService struct {
	c *Client
}

// Owner returns the client wrapping c's transport as an OwnerService.
func (c *Client) Owner() *OwnerService {
	return &OwnerService{c: c}
}

// Subscription is a cancelable handle onto a live owner sync stream. Events
// arrive on Events(); the stream closing cleanly (the upstream "done" event)
// closes Done() with Err() == nil; a transport failure closes Done() with a
// non-nil Err().
type Subscription struct {
	events chan SyncEvent
	done   chan struct{}
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

func (s *Subscription) Events() <-chan SyncEvent { return s.events }
func (s *Subscription) Done() <-chan struct{}    { return s.done }

func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Close cancels the underlying request. Safe to call more than once.
func (s *Subscription) Close() {
	s.cancel()
}

// Subscribe opens a GET /api/owner/sync stream for owners starting from
// score from. The returned Subscription's goroutine owns the response body
// and closes it on Close, EOF, or stream error.
func (s *OwnerService) Subscribe(ctx context.Context, owners []string, from float64) (*Subscription, error) {
	q := url.Values{}
	for _, o := range owners {
		q.Add("owner", o)
	}
	q.Set("from", strconv.FormatFloat(from, 'f', -1, 64))

	subCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(subCtx, http.MethodGet, s.c.BaseURL+"/api/owner/sync?"+q.Encode(), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("owner subscribe: build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.c.doRequest(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("owner subscribe: %w", err)
	}

	sub := &Subscription{
		events: make(chan SyncEvent),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go sub.readLoop(resp.Body)
	return sub, nil
}

func (s *Subscription) readLoop(body io.ReadCloser) {
	defer close(s.done)
	defer close(s.events)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventName string
	var dataLines []string
	finished := false
	flush := func() {
		if eventName == "done" {
			finished = true
			dataLines = nil
			eventName = ""
			return
		}
		if len(dataLines) == 0 {
			dataLines = nil
			eventName = ""
			return
		}
		payload := strings.Join(dataLines, "\n")
		dataLines = nil
		switch eventName {
		case "error":
			s.setErr(fmt.Errorf("owner stream: %s", payload))
			eventName = ""
			return
		}
		eventName = ""
		var ev SyncEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			s.setErr(fmt.Errorf("owner stream: decode event: %w", err))
			return
		}
		select {
		case s.events <- ev:
		case <-s.done:
		}
	}

	for !finished && scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		s.setErr(fmt.Errorf("owner stream: %w", err))
	}
}
