// Command walletsync is a demo binary wiring config, the indexer client,
// the sync queue, the wallet store, and the sync orchestrator together — not
// a general CLI framework (spec §1/§6 place the CLI surface out of scope).
// Grounded on apps/ft-main/main.go's load-config/open-stores/run/signal-
// handle shape and indexer/utxo.go's InitProgressBar for rendering
// sync:progress.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/schollz/progressbar/v3"

	"github.com/b-open-io/1sat-wallet-toolbox/client"
	"github.com/b-open-io/1sat-wallet-toolbox/config"
	"github.com/b-open-io/1sat-wallet-toolbox/decoder"
	"github.com/b-open-io/1sat-wallet-toolbox/events"
	"github.com/b-open-io/1sat-wallet-toolbox/queue"
	"github.com/b-open-io/1sat-wallet-toolbox/storage"
	"github.com/b-open-io/1sat-wallet-toolbox/sync"
	"github.com/b-open-io/1sat-wallet-toolbox/wallet"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("walletsync: load config: %v", err)
	}

	q, err := queue.NewPebbleQueue(cfg.DataDir + "/queue")
	if err != nil {
		log.Fatalf("walletsync: open queue: %v", err)
	}
	defer q.Close()

	store, err := storage.NewWalletStore(cfg.DataDir + "/wallet")
	if err != nil {
		log.Fatalf("walletsync: open wallet store: %v", err)
	}
	defer store.Close()

	c := client.New(cfg.BaseURL)
	c.HTTPClient.Timeout = cfg.RequestTimeout()

	owners := wallet.NewOwners(cfg.Owners...)
	decoders := decoder.Registry(decoder.Deps{
		OrdFS:   c.OrdFS(),
		Overlay: c.Bsv21(),
	})
	w := wallet.New(store, decoders, c, owners, cfg.UserID)

	bus := events.NewBus()
	bar := newSyncProgressBar()
	bus.Subscribe(events.SyncStart, func(payload any) {
		p := payload.(*events.StartPayload)
		fmt.Fprintf(colorable.NewColorableStdout(), "syncing %d address(es)\n", len(p.Addresses))
	})
	bus.Subscribe(events.SyncProgress, func(payload any) {
		p := payload.(*events.ProgressPayload)
		bar.Set(p.Done + p.Failed) //nolint:errcheck
	})
	bus.Subscribe(events.SyncComplete, func(payload any) {
		bar.Finish() //nolint:errcheck
		fmt.Fprintln(colorable.NewColorableStdout(), "sync complete")
	})
	bus.Subscribe(events.SyncError, func(payload any) {
		p := payload.(*events.ErrorPayload)
		log.Printf("walletsync: sync:error: %s", p.Message)
	})

	orch := sync.New(w, q, c, bus)
	orch.BatchSize = cfg.BatchSize
	if cfg.PollIntervalMS > 0 {
		orch.PollInterval = cfg.PollInterval()
	}

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("walletsync: shutting down")
		orch.StopSync()
		cancel()
	}()

	if err := orch.Sync(ctx, cfg.Owners); err != nil && ctx.Err() == nil {
		log.Fatalf("walletsync: sync: %v", err)
	}
}

// newSyncProgressBar renders an indeterminate-total bar against
// sync:progress's pending/done/failed counts; the total is unknown up
// front (the queue grows as the stream delivers events), so the bar tracks
// completed-count rather than a fixed goal.
func newSyncProgressBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(colorable.NewColorableStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription("Syncing..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
	)
}
