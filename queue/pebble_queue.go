package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble/v2"
)

// PebbleQueue is the embedded key-value backend spec §4.4 requires for
// restricted client runtimes. Grounded on storage/queries.go's SimpleDB: a
// single unsharded pebble.DB, prefix scans via an iterator bounded by
// LowerBound plus a manual HasPrefix check. Unlike PebbleStore's 16-way
// shard hash, a wallet's own sync queue is single-account scale, so there is
// nothing to shard — see DESIGN.md for why the teacher's sharding and
// xxhash dependency are dropped here.
type PebbleQueue struct {
	db *pebble.DB
	mu sync.Mutex
}

const (
	itemPrefix     = "item/"
	byTxidPrefix   = "byTxid/"
	byStatusPrefix = "byStatus/"
	stateKeyName   = "state"
)

func itemKey(id string) []byte { return []byte(itemPrefix + id) }

func byTxidKey(txid, id string) []byte { return []byte(byTxidPrefix + txid + "/" + id) }

func byTxidPrefixFor(txid string) string { return byTxidPrefix + txid + "/" }

func byStatusKey(status Status, id string) []byte {
	return []byte(byStatusPrefix + string(status) + "/" + id)
}

// NewPebbleQueue opens (creating if absent) the pebble database at dataDir.
func NewPebbleQueue(dataDir string) (*PebbleQueue, error) {
	db, err := pebble.Open(dataDir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("queue: open pebble db: %w", err)
	}
	return &PebbleQueue{db: db}, nil
}

func (q *PebbleQueue) Close() error {
	return q.db.Close()
}

func (q *PebbleQueue) loadItem(id string) (*Item, error) {
	value, closer, err := q.db.Get(itemKey(id))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	var it Item
	if err := json.Unmarshal(value, &it); err != nil {
		return nil, fmt.Errorf("queue: decode item %s: %w", id, err)
	}
	return &it, nil
}

// putItem writes item and its byTxid/byStatus index entries into batch,
// removing the stale byStatus entry for oldStatus when the status changed.
func putItem(batch *pebble.Batch, it *Item, oldStatus Status, hadOld bool) error {
	raw, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("queue: encode item %s: %w", it.ID, err)
	}
	if err := batch.Set(itemKey(it.ID), raw, nil); err != nil {
		return err
	}
	if err := batch.Set(byTxidKey(it.Txid(), it.ID), nil, nil); err != nil {
		return err
	}
	if hadOld && oldStatus != it.Status {
		if err := batch.Delete(byStatusKey(oldStatus, it.ID), nil); err != nil {
			return err
		}
	}
	return batch.Set(byStatusKey(it.Status, it.ID), nil, nil)
}

func (q *PebbleQueue) Enqueue(ctx context.Context, items []EnqueueItem) error {
	if len(items) == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	batch := q.db.NewBatch()
	defer batch.Close()

	now := time.Now().Unix()
	for _, in := range items {
		id := ItemID(in.Outpoint, in.Score)
		existing, err := q.loadItem(id)
		if err != nil && err != ErrNotFound {
			return err
		}
		if existing != nil && existing.Status == StatusDone {
			continue
		}

		it := &Item{
			ID:        id,
			Outpoint:  in.Outpoint,
			Score:     in.Score,
			SpendTxid: in.SpendTxid,
			Status:    StatusPending,
			UpdatedAt: now,
		}
		if existing != nil {
			it.Attempts = existing.Attempts
			it.CreatedAt = existing.CreatedAt
			if err := putItem(batch, it, existing.Status, true); err != nil {
				return err
			}
		} else {
			it.CreatedAt = now
			if err := putItem(batch, it, "", false); err != nil {
				return err
			}
		}
	}
	return batch.Commit(pebble.Sync)
}

func (q *PebbleQueue) scanPrefix(prefix string, limit int) ([]string, error) {
	lower := []byte(prefix)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: lower})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ids []string
	for iter.First(); iter.Valid(); iter.Next() {
		key := string(iter.Key())
		if !strings.HasPrefix(key, prefix) {
			break
		}
		ids = append(ids, key[len(prefix):])
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	return ids, nil
}

func (q *PebbleQueue) Claim(ctx context.Context, count int) (map[string][]*Item, error) {
	if count <= 0 {
		return map[string][]*Item{}, nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	seedIDs, err := q.scanPrefix(byStatusPrefix+string(StatusPending)+"/", count)
	if err != nil {
		return nil, fmt.Errorf("queue: scan pending seeds: %w", err)
	}
	if len(seedIDs) == 0 {
		return map[string][]*Item{}, nil
	}

	txids := make(map[string]struct{})
	for _, id := range seedIDs {
		it, err := q.loadItem(id)
		if err != nil {
			return nil, fmt.Errorf("queue: load seed %s: %w", id, err)
		}
		txids[it.Txid()] = struct{}{}
	}

	batch := q.db.NewBatch()
	defer batch.Close()

	now := time.Now().Unix()
	result := make(map[string][]*Item)
	for txid := range txids {
		groupIDs, err := q.scanPrefix(byTxidPrefixFor(txid), 0)
		if err != nil {
			return nil, fmt.Errorf("queue: scan group %s: %w", txid, err)
		}
		var group []*Item
		for _, id := range groupIDs {
			it, err := q.loadItem(id)
			if err != nil {
				return nil, fmt.Errorf("queue: load group item %s: %w", id, err)
			}
			if it.Status != StatusPending {
				continue
			}
			old := it.Status
			it.Status = StatusProcessing
			it.Attempts++
			it.UpdatedAt = now
			if err := putItem(batch, it, old, true); err != nil {
				return nil, err
			}
			group = append(group, it)
		}
		if len(group) > 0 {
			result[txid] = group
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return nil, err
	}
	return result, nil
}

func (q *PebbleQueue) Complete(ctx context.Context, id string) error {
	return q.CompleteMany(ctx, []string{id})
}

func (q *PebbleQueue) CompleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	batch := q.db.NewBatch()
	defer batch.Close()

	now := time.Now().Unix()
	for _, id := range ids {
		it, err := q.loadItem(id)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return err
		}
		old := it.Status
		it.Status = StatusDone
		it.UpdatedAt = now
		if err := putItem(batch, it, old, true); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func (q *PebbleQueue) Fail(ctx context.Context, id string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, err := q.loadItem(id)
	if err != nil {
		return err
	}
	batch := q.db.NewBatch()
	defer batch.Close()

	old := it.Status
	it.Status = StatusFailed
	it.LastError = &reason
	it.UpdatedAt = time.Now().Unix()
	if err := putItem(batch, it, old, true); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

func (q *PebbleQueue) loadAll(ids []string) ([]*Item, error) {
	items := make([]*Item, 0, len(ids))
	for _, id := range ids {
		it, err := q.loadItem(id)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func (q *PebbleQueue) GetByTxid(ctx context.Context, txid string) ([]*Item, error) {
	ids, err := q.scanPrefix(byTxidPrefixFor(txid), 0)
	if err != nil {
		return nil, err
	}
	return q.loadAll(ids)
}

func (q *PebbleQueue) GetByStatus(ctx context.Context, status Status, limit int) ([]*Item, error) {
	ids, err := q.scanPrefix(byStatusPrefix+string(status)+"/", limit)
	if err != nil {
		return nil, err
	}
	return q.loadAll(ids)
}

func (q *PebbleQueue) GetStats(ctx context.Context) (Stats, error) {
	ids, err := q.scanPrefix(itemPrefix, 0)
	if err != nil {
		return Stats{}, err
	}
	perTxid := make(map[string]map[Status]int)
	for _, id := range ids {
		it, err := q.loadItem(id)
		if err != nil {
			return Stats{}, err
		}
		txid := it.Txid()
		if perTxid[txid] == nil {
			perTxid[txid] = make(map[Status]int)
		}
		perTxid[txid][it.Status]++
	}

	var stats Stats
	for _, counts := range perTxid {
		switch majorityStatus(counts) {
		case StatusPending:
			stats.Pending++
		case StatusProcessing:
			stats.Processing++
		case StatusDone:
			stats.Done++
		case StatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (q *PebbleQueue) GetState(ctx context.Context) (State, error) {
	value, closer, err := q.db.Get([]byte(stateKeyName))
	if err != nil {
		if err == pebble.ErrNotFound {
			return State{}, nil
		}
		return State{}, err
	}
	defer closer.Close()
	var st State
	if err := json.Unmarshal(value, &st); err != nil {
		return State{}, fmt.Errorf("queue: decode state: %w", err)
	}
	return st, nil
}

func (q *PebbleQueue) SetState(ctx context.Context, patch StatePatch) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	st, err := q.GetState(ctx)
	if err != nil {
		return err
	}
	if patch.LastQueuedScore != nil {
		st.LastQueuedScore = *patch.LastQueuedScore
	}
	if patch.LastSyncedAt != nil {
		st.LastSyncedAt = *patch.LastSyncedAt
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("queue: encode state: %w", err)
	}
	return q.db.Set([]byte(stateKeyName), raw, pebble.Sync)
}

func (q *PebbleQueue) ResetProcessing(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids, err := q.scanPrefix(byStatusPrefix+string(StatusProcessing)+"/", 0)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	batch := q.db.NewBatch()
	defer batch.Close()

	now := time.Now().Unix()
	for _, id := range ids {
		it, err := q.loadItem(id)
		if err != nil {
			return 0, err
		}
		it.Status = StatusPending
		it.UpdatedAt = now
		if err := putItem(batch, it, StatusProcessing, true); err != nil {
			return 0, err
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (q *PebbleQueue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	iter, err := q.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	var keys [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, append([]byte(nil), iter.Key()...))
	}
	if err := iter.Close(); err != nil {
		return err
	}

	batch := q.db.NewBatch()
	defer batch.Close()
	for _, k := range keys {
		if err := batch.Delete(k, nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}
