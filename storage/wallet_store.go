package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble/v2"

	"github.com/b-open-io/1sat-wallet-toolbox/wallet"
)

// WalletStore is the embedded wallet.Store backend spec §4.6's storage
// writer runs against. Grounded on queue/pebble_queue.go's single-db,
// JSON-value, prefix-scanned-index shape, generalized from the queue's one
// record type to the five
// record kinds (transactions, outputs, baskets, tags, tx labels, and their
// many-to-many maps) wallet.Store's contract names.
type WalletStore struct {
	db *pebble.DB
	mu sync.Mutex
}

const (
	txPrefix        = "tx/"
	txByTxidPrefix  = "txByTxid/"
	outPrefix       = "out/"
	outByOpPrefix   = "outByOutpoint/"
	outByTxidPrefix = "outByTxid/"
	basketPrefix    = "basket/"
	tagPrefix       = "tag/"
	tagMapPrefix    = "tagMap/"
	labelPrefix     = "label/"
	labelMapPrefix  = "labelMap/"
	counterPrefix   = "counter/"
)

// NewWalletStore opens (creating if absent) the pebble database at dataDir.
func NewWalletStore(dataDir string) (*WalletStore, error) {
	db, err := pebble.Open(dataDir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("storage: open wallet store: %w", err)
	}
	return &WalletStore{db: db}, nil
}

func (s *WalletStore) Close() error { return s.db.Close() }

func (s *WalletStore) nextID(batch *pebble.Batch, counter string) (int, error) {
	key := []byte(counterPrefix + counter)
	value, closer, err := s.db.Get(key)
	n := 0
	if err == nil {
		n, _ = strconv.Atoi(string(value))
		closer.Close()
	} else if err != pebble.ErrNotFound {
		return 0, err
	}
	n++
	if err := batch.Set(key, []byte(strconv.Itoa(n)), nil); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *WalletStore) scanPrefix(prefix string) ([]string, error) {
	lower := []byte(prefix)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var suffixes []string
	for iter.First(); iter.Valid(); iter.Next() {
		key := string(iter.Key())
		if !strings.HasPrefix(key, prefix) {
			break
		}
		suffixes = append(suffixes, key[len(prefix):])
	}
	return suffixes, nil
}

func (s *WalletStore) getJSON(key string, v any) (bool, error) {
	value, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if err == pebble.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	defer closer.Close()
	if err := json.Unmarshal(value, v); err != nil {
		return false, fmt.Errorf("storage: decode %s: %w", key, err)
	}
	return true, nil
}

// FindTransactions implements wallet.Store.
func (s *WalletStore) FindTransactions(ctx context.Context, q wallet.TransactionQuery) ([]*wallet.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	if q.Txid != nil {
		suffixes, err := s.scanPrefix(txByTxidPrefix + *q.Txid + "/")
		if err != nil {
			return nil, err
		}
		ids = suffixes
	} else {
		suffixes, err := s.scanPrefix(txPrefix)
		if err != nil {
			return nil, err
		}
		ids = suffixes
	}

	var out []*wallet.TransactionRecord
	for _, id := range ids {
		var rec wallet.TransactionRecord
		ok, err := s.getJSON(txPrefix+id, &rec)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, &rec)
		}
	}
	return out, nil
}

// InsertTransaction implements wallet.Store.
func (s *WalletStore) InsertTransaction(ctx context.Context, rec *wallet.TransactionRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.NewBatch()
	defer batch.Close()

	id, err := s.nextID(batch, "tx")
	if err != nil {
		return 0, err
	}
	rec.ID = id

	raw, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("storage: encode transaction %d: %w", id, err)
	}
	idStr := strconv.Itoa(id)
	if err := batch.Set([]byte(txPrefix+idStr), raw, nil); err != nil {
		return 0, err
	}
	if err := batch.Set([]byte(txByTxidPrefix+rec.Txid+"/"+idStr), nil, nil); err != nil {
		return 0, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	return id, nil
}

// FindOutputs implements wallet.Store.
func (s *WalletStore) FindOutputs(ctx context.Context, q wallet.OutputQuery) ([]*wallet.OutputRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	switch {
	case q.Outpoint != nil:
		value, closer, err := s.db.Get([]byte(outByOpPrefix + *q.Outpoint))
		if err != nil {
			if err == pebble.ErrNotFound {
				return nil, nil
			}
			return nil, err
		}
		id := string(value)
		closer.Close()
		ids = []string{id}
	case q.Txid != nil:
		suffixes, err := s.scanPrefix(outByTxidPrefix + *q.Txid + "/")
		if err != nil {
			return nil, err
		}
		ids = suffixes
	default:
		suffixes, err := s.scanPrefix(outPrefix)
		if err != nil {
			return nil, err
		}
		ids = suffixes
	}

	var out []*wallet.OutputRecord
	for _, id := range ids {
		var rec wallet.OutputRecord
		ok, err := s.getJSON(outPrefix+id, &rec)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if q.Vout != nil && rec.Vout != *q.Vout {
			continue
		}
		if q.Spendable != nil && rec.Spendable != *q.Spendable {
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}

// InsertOutput implements wallet.Store.
func (s *WalletStore) InsertOutput(ctx context.Context, rec *wallet.OutputRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.NewBatch()
	defer batch.Close()

	id, err := s.nextID(batch, "out")
	if err != nil {
		return 0, err
	}
	rec.ID = id

	raw, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("storage: encode output %d: %w", id, err)
	}
	idStr := strconv.Itoa(id)
	if err := batch.Set([]byte(outPrefix+idStr), raw, nil); err != nil {
		return 0, err
	}
	if err := batch.Set([]byte(outByOpPrefix+rec.Outpoint), []byte(idStr), nil); err != nil {
		return 0, err
	}
	if err := batch.Set([]byte(outByTxidPrefix+rec.Txid+"/"+idStr), nil, nil); err != nil {
		return 0, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateOutput implements wallet.Store.
func (s *WalletStore) UpdateOutput(ctx context.Context, id int, patch wallet.OutputPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idStr := strconv.Itoa(id)
	var rec wallet.OutputRecord
	ok, err := s.getJSON(outPrefix+idStr, &rec)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("storage: update output %d: not found", id)
	}
	if patch.Spendable != nil {
		rec.Spendable = *patch.Spendable
	}
	if patch.SpentBy != nil {
		rec.SpentBy = patch.SpentBy
	}

	raw, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("storage: encode output %d: %w", id, err)
	}
	return s.db.Set([]byte(outPrefix+idStr), raw, pebble.Sync)
}

func (s *WalletStore) findOrInsertNamed(ctx context.Context, prefix, name string, counter string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := []byte(prefix + name)
	if value, closer, err := s.db.Get(key); err == nil {
		id, _ := strconv.Atoi(string(value))
		closer.Close()
		return id, nil
	} else if err != pebble.ErrNotFound {
		return 0, err
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	id, err := s.nextID(batch, counter)
	if err != nil {
		return 0, err
	}
	if err := batch.Set(key, []byte(strconv.Itoa(id)), nil); err != nil {
		return 0, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	return id, nil
}

// FindOrInsertOutputBasket implements wallet.Store. Baskets are scoped by
// name only; userID is accepted to satisfy the interface spec §3 defines
// but this single-account embedded store has exactly one user.
func (s *WalletStore) FindOrInsertOutputBasket(ctx context.Context, userID int, name string) (int, error) {
	return s.findOrInsertNamed(ctx, basketPrefix, name, "basket")
}

// FindOrInsertOutputTag implements wallet.Store.
func (s *WalletStore) FindOrInsertOutputTag(ctx context.Context, userID int, name string) (int, error) {
	return s.findOrInsertNamed(ctx, tagPrefix, name, "tag")
}

// FindOrInsertOutputTagMap implements wallet.Store.
func (s *WalletStore) FindOrInsertOutputTagMap(ctx context.Context, outputID, tagID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s%d/%d", tagMapPrefix, outputID, tagID)
	return s.db.Set([]byte(key), nil, pebble.Sync)
}

// FindOrInsertTxLabel implements wallet.Store.
func (s *WalletStore) FindOrInsertTxLabel(ctx context.Context, userID int, name string) (int, error) {
	return s.findOrInsertNamed(ctx, labelPrefix, name, "label")
}

// FindOrInsertTxLabelMap implements wallet.Store.
func (s *WalletStore) FindOrInsertTxLabelMap(ctx context.Context, txID, labelID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s%d/%d", labelMapPrefix, txID, labelID)
	return s.db.Set([]byte(key), nil, pebble.Sync)
}

// Transaction implements wallet.Store. Pebble exposes no cross-call
// transaction primitive through this store's single-statement batch
// helpers, so Transaction provides only the logical grouping
// ingestTransaction needs, not atomicity across a crash; each individual
// write above is still committed with pebble.Sync.
func (s *WalletStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx wallet.Store) error) error {
	return fn(ctx, s)
}
