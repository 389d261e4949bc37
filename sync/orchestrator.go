// Package sync implements the sync orchestrator of spec §4.5: a stream
// loop that turns the indexer's owner SSE feed into durable queue rows, and
// a processor loop that drains the queue through the wallet writer. The two
// loops run concurrently and are started/stopped independently, matching
// spec's "expose the two loops independently for test and introspection
// scenarios." Grounded on indexer/utxo.go's batch-claim-then-concurrent-fan
// -out shape and mempool/zmq_client.go's context-cancelable single-reader
// goroutine structure.
package sync

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/b-open-io/1sat-wallet-toolbox/client"
	"github.com/b-open-io/1sat-wallet-toolbox/events"
	"github.com/b-open-io/1sat-wallet-toolbox/queue"
	"github.com/b-open-io/1sat-wallet-toolbox/wallet"
)

// ReorgSafeDepth is the number of blocks back from the chain tip a
// delivered event must be before its score is persisted as the sync
// resume point — spec §4.5 step 4's re-org safety margin.
const ReorgSafeDepth = 6

// DefaultBatchSize is claim's default count when BatchSize is unset.
const DefaultBatchSize = 20

// DefaultPollInterval is how long the processor sleeps when the queue is
// empty but the stream has not yet signaled done.
const DefaultPollInterval = 100 * time.Millisecond

// Orchestrator binds a wallet, a queue backend, an indexer client, and an
// event bus into the stream+processor sync engine.
type Orchestrator struct {
	Wallet *wallet.Wallet
	Queue  queue.Queue
	Client *client.Client
	Events *events.Bus

	BatchSize    int
	PollInterval time.Duration

	mu              sync.Mutex
	streamActive    bool
	streamDone      bool
	processorActive bool
	stopRequested   bool
	sub             *client.Subscription
}

// New builds an Orchestrator over its dependencies, applying the package's
// default batch size and poll interval.
func New(w *wallet.Wallet, q queue.Queue, c *client.Client, bus *events.Bus) *Orchestrator {
	return &Orchestrator{
		Wallet:       w,
		Queue:        q,
		Client:       c,
		Events:       bus,
		BatchSize:    DefaultBatchSize,
		PollInterval: DefaultPollInterval,
	}
}

func (o *Orchestrator) IsStreamActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.streamActive
}

func (o *Orchestrator) IsStreamDone() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.streamDone
}

func (o *Orchestrator) IsProcessorActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.processorActive
}

// StartStream runs the stream loop (spec §4.5) to completion. It is
// synchronous; callers that want it to run alongside the processor invoke
// it in its own goroutine, as Sync does.
func (o *Orchestrator) StartStream(ctx context.Context, owners []string) error {
	if o.Queue == nil {
		return fmt.Errorf("sync: stream: no queue configured")
	}

	o.mu.Lock()
	o.streamActive = true
	o.streamDone = false
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.streamActive = false
		o.mu.Unlock()
	}()

	if _, err := o.Queue.ResetProcessing(ctx); err != nil {
		return fmt.Errorf("sync: stream: reset processing: %w", err)
	}

	state, err := o.Queue.GetState(ctx)
	if err != nil {
		return fmt.Errorf("sync: stream: get state: %w", err)
	}
	fromScore := state.LastQueuedScore

	tip, err := o.Client.Chaintracks().Tip(ctx)
	if err != nil {
		o.markStreamDone()
		o.Events.EmitError(err.Error())
		return fmt.Errorf("sync: stream: chaintracks tip: %w", err)
	}
	currentHeight := tip.Height

	sub, err := o.Client.Owner().Subscribe(ctx, owners, fromScore)
	if err != nil {
		o.markStreamDone()
		o.Events.EmitError(err.Error())
		return fmt.Errorf("sync: stream: subscribe: %w", err)
	}
	o.mu.Lock()
	o.sub = sub
	o.mu.Unlock()

	o.Events.EmitStart(owners)

	for ev := range sub.Events() {
		item := queue.EnqueueItem{Outpoint: ev.Outpoint, Score: ev.Score, SpendTxid: ev.SpendTxid}
		if err := o.Queue.Enqueue(ctx, []queue.EnqueueItem{item}); err != nil {
			log.Printf("sync: stream: enqueue %s: %v", ev.Outpoint, err)
			continue
		}

		blockHeight := uint32(math.Floor(ev.Score))
		if currentHeight >= ReorgSafeDepth && blockHeight <= currentHeight-ReorgSafeDepth {
			score := ev.Score
			now := time.Now().Unix()
			if err := o.Queue.SetState(ctx, queue.StatePatch{LastQueuedScore: &score, LastSyncedAt: &now}); err != nil {
				log.Printf("sync: stream: set state: %v", err)
			}
		}
	}

	o.markStreamDone()
	if err := sub.Err(); err != nil {
		o.Events.EmitError(err.Error())
		return fmt.Errorf("sync: stream: %w", err)
	}
	return nil
}

func (o *Orchestrator) markStreamDone() {
	o.mu.Lock()
	o.streamDone = true
	o.mu.Unlock()
}

// StopStream closes the SSE subscription, if one is open. The stream
// goroutine observes the channel closing and exits on its own.
func (o *Orchestrator) StopStream() {
	o.mu.Lock()
	sub := o.sub
	o.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

// StartProcessor runs the processor loop (spec §4.5) until stopRequested is
// set or the stream reports done with an empty queue.
func (o *Orchestrator) StartProcessor(ctx context.Context) error {
	o.mu.Lock()
	o.processorActive = true
	o.stopRequested = false
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.processorActive = false
		o.mu.Unlock()
	}()

	batchSize := o.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	poll := o.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	for {
		if o.stopping() {
			return nil
		}

		byTxid, err := o.Queue.Claim(ctx, batchSize)
		if err != nil {
			return fmt.Errorf("sync: processor: claim: %w", err)
		}

		if len(byTxid) == 0 {
			if o.IsStreamDone() {
				o.Events.EmitComplete()
				return nil
			}
			select {
			case <-time.After(poll):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		var wg sync.WaitGroup
		for txid, items := range byTxid {
			wg.Add(1)
			go func(txid string, items []*queue.Item) {
				defer wg.Done()
				o.processGroup(ctx, txid, items)
			}(txid, items)
		}
		wg.Wait()

		stats, err := o.Queue.GetStats(ctx)
		if err != nil {
			log.Printf("sync: processor: get stats: %v", err)
			continue
		}
		o.Events.EmitProgress(stats.Pending, stats.Done, stats.Failed)
	}
}

func (o *Orchestrator) stopping() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopRequested
}

// processGroup handles one txid's claimed items: a spend-only group just
// flips spendability; otherwise the transaction is loaded and ingested,
// then any of its outputs named in spendMap are flipped too — spec §4.5
// processor step 3.
func (o *Orchestrator) processGroup(ctx context.Context, txid string, items []*queue.Item) {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}

	spendOnly := true
	spendMap := make(map[uint32]string)
	for _, it := range items {
		if it.SpendTxid == nil {
			spendOnly = false
			continue
		}
		if vout, ok := voutOf(it.Outpoint); ok {
			spendMap[vout] = *it.SpendTxid
		}
	}

	if spendOnly {
		for _, it := range items {
			if err := o.Wallet.MarkSpent(ctx, it.Outpoint); err != nil {
				o.failItem(ctx, it.ID, err)
				return
			}
		}
		o.completeItems(ctx, ids)
		return
	}

	if err := o.ingestWithSpendInfo(ctx, txid, spendMap); err != nil {
		o.failGroup(ctx, ids, err)
		return
	}
	o.completeItems(ctx, ids)
}

// ingestWithSpendInfo loads txid's transaction, runs ingestTransaction, and
// marks every output named in spendMap as spent.
func (o *Orchestrator) ingestWithSpendInfo(ctx context.Context, txid string, spendMap map[uint32]string) error {
	tx, err := o.Wallet.Fetcher.FetchTransaction(ctx, txid)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", txid, err)
	}
	if tx == nil {
		return fmt.Errorf("fetch %s: transaction not found", txid)
	}

	if _, err := o.Wallet.IngestTransaction(ctx, tx, txid, true, nil); err != nil {
		return fmt.Errorf("ingest %s: %w", txid, err)
	}

	for vout := range spendMap {
		op := txid + "_" + strconv.FormatUint(uint64(vout), 10)
		if err := o.Wallet.MarkSpent(ctx, op); err != nil {
			return fmt.Errorf("mark spent %s: %w", op, err)
		}
	}
	return nil
}

func (o *Orchestrator) completeItems(ctx context.Context, ids []string) {
	if err := o.Queue.CompleteMany(ctx, ids); err != nil {
		log.Printf("sync: processor: complete many: %v", err)
	}
}

func (o *Orchestrator) failItem(ctx context.Context, id string, cause error) {
	if err := o.Queue.Fail(ctx, id, cause.Error()); err != nil {
		log.Printf("sync: processor: fail %s: %v", id, err)
	}
	o.Events.EmitError(cause.Error())
}

func (o *Orchestrator) failGroup(ctx context.Context, ids []string, cause error) {
	for _, id := range ids {
		if err := o.Queue.Fail(ctx, id, cause.Error()); err != nil {
			log.Printf("sync: processor: fail %s: %v", id, err)
		}
	}
	o.Events.EmitError(cause.Error())
}

func voutOf(outpoint string) (uint32, bool) {
	idx := -1
	for i := len(outpoint) - 1; i >= 0; i-- {
		if outpoint[i] == '_' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(outpoint[idx+1:], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// Sync runs the stream and processor loops together until the processor
// finishes (queue drained and the stream reports done) or ctx is canceled.
// It is the sync orchestrator's top-level entry point.
func (o *Orchestrator) Sync(ctx context.Context, owners []string) error {
	var streamErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		streamErr = o.StartStream(ctx, owners)
	}()

	procErr := o.StartProcessor(ctx)
	o.StopStream()
	wg.Wait()

	if procErr != nil {
		return procErr
	}
	return streamErr
}

// StopSync is cooperative: it flips stopRequested, closes the SSE
// subscription, and returns; in-flight batch work is allowed to finish —
// spec §5's cancellation semantics.
func (o *Orchestrator) StopSync() {
	o.mu.Lock()
	o.stopRequested = true
	o.mu.Unlock()
	o.StopStream()
}
