// Package queue implements the per-account sync queue described in spec
// §4.4: a durable set of upstream delivery events (creations and spends)
// tracked through pending/processing/done/failed states, with two
// conforming backends (pebble_queue.go, sqlite_queue.go) sharing this file's
// types and the Queue contract.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Status is one of the four states a queue row moves through.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// ErrNotFound is returned by Fail when no row has the given id; Complete and
// CompleteMany skip such ids without error.
var ErrNotFound = errors.New("queue: not found")

// EnqueueItem is one upstream delivery: a created or spent outpoint at a
// given score, optionally carrying the spending txid.
type EnqueueItem struct {
	Outpoint  string
	Score     float64
	SpendTxid *string
}

// Item is one durable queue row.
type Item struct {
	ID        string
	Outpoint  string
	Score     float64
	SpendTxid *string
	Status    Status
	Attempts  int
	LastError *string
	CreatedAt int64
	UpdatedAt int64
}

// Txid returns the first 32 bytes (64 hex chars) of the item's outpoint —
// the txid half of "<txid>_<vout>".
func (it *Item) Txid() string {
	return txidOf(it.Outpoint)
}

// State is the single-row sync state persisted per account.
type State struct {
	LastQueuedScore float64
	LastSyncedAt    int64
}

// StatePatch merges into the stored State; nil fields leave the stored
// value unchanged, matching setState's "patch" semantics in spec §4.4.
type StatePatch struct {
	LastQueuedScore *float64
	LastSyncedAt    *int64
}

// Stats is getStats()'s per-status count, distinct by txid.
type Stats struct {
	Pending    int
	Processing int
	Done       int
	Failed     int
}

// Queue is the contract both backends implement.
type Queue interface {
	Enqueue(ctx context.Context, items []EnqueueItem) error
	Claim(ctx context.Context, count int) (map[string][]*Item, error)
	Complete(ctx context.Context, id string) error
	CompleteMany(ctx context.Context, ids []string) error
	Fail(ctx context.Context, id string, reason string) error
	GetByTxid(ctx context.Context, txid string) ([]*Item, error)
	GetByStatus(ctx context.Context, status Status, limit int) ([]*Item, error)
	GetStats(ctx context.Context) (Stats, error)
	GetState(ctx context.Context) (State, error)
	SetState(ctx context.Context, patch StatePatch) error
	ResetProcessing(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

// ItemID builds the id "<outpoint>:<score>" spec §4.4's enqueue rule uses.
func ItemID(outpoint string, score float64) string {
	return outpoint + ":" + formatScore(score)
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'g', -1, 64)
}

// encodeState/decodeState give the sqlite backend the same JSON-blob
// representation of State that the pebble backend stores under its single
// state key.
func encodeState(st State) string {
	raw, _ := json.Marshal(st)
	return string(raw)
}

func decodeState(raw string) (State, error) {
	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return State{}, err
	}
	return st, nil
}

// txidOf extracts the txid half of an "<txid>_<vout>" outpoint string.
func txidOf(outpoint string) string {
	if i := strings.IndexByte(outpoint, '_'); i >= 0 {
		return outpoint[:i]
	}
	return outpoint
}

// statusPriority orders statuses for GetStats' majority-vote tie-break:
// pending and processing are "in flight" and should win ties over settled
// statuses so a txid with mixed rows reads as still-active.
var statusPriority = []Status{StatusPending, StatusProcessing, StatusFailed, StatusDone}

// majorityStatus picks the representative status for a txid whose rows may
// span more than one status (a prior claim completed some but not all
// rows before crashing, say). Ties break by statusPriority order.
func majorityStatus(counts map[Status]int) Status {
	best := StatusPending
	bestN := -1
	for _, s := range statusPriority {
		if n := counts[s]; n > bestN {
			best, bestN = s, n
		}
	}
	return best
}
