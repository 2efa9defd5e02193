package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/judgment-gateway/internal/app"
	"github.com/jmehdipour/judgment-gateway/internal/model"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Register judgment events from a JSON file (array or one object per line)",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, log, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		// 2) read events
		f, err := os.Open(seedFile)
		if err != nil {
			return fmt.Errorf("open %s: %w", seedFile, err)
		}
		defer f.Close()

		events, err := decodeEvents(f)
		if err != nil {
			return fmt.Errorf("decode %s: %w", seedFile, err)
		}

		// 3) connect MySQL; the court code cache is not needed for a one-off load
		sqlDB, err := app.OpenMySQL(cfg)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		svc, err := app.NewIngest(cfg, sqlDB, nil, log)
		if err != nil {
			return err
		}

		fmt.Printf(">> Registering %d events...\n", len(events))

		ctx := context.Background()
		var failed int
		for i, ev := range events {
			outcome, err := svc.Process(ctx, ev)
			if err != nil {
				failed++
				log.Warn("seed: event rejected", zap.Int("index", i), zap.String("judgment_id", ev.JudgmentID), zap.Error(err))
				continue
			}
			fmt.Printf("   %s %s\n", ev.JudgmentID, outcome)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d events rejected", failed, len(events))
		}
		fmt.Println(">> Seed completed ✅")
		return nil
	},
}

// decodeEvents accepts either a JSON array of events or a stream of event
// objects.
func decodeEvents(r io.Reader) ([]model.InboundEvent, error) {
	br := bufio.NewReader(r)
	head, err := peekNonSpace(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	dec := json.NewDecoder(br)
	if head == '[' {
		var events []model.InboundEvent
		if err := dec.Decode(&events); err != nil {
			return nil, err
		}
		return events, nil
	}

	var events []model.InboundEvent
	for {
		var ev model.InboundEvent
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return nil, fmt.Errorf("event %d: %w", len(events)+1, err)
		}
		events = append(events, ev)
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsRune([]byte(" \t\r\n"), rune(b)) {
			return b, br.UnreadByte()
		}
	}
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "events.json", "path to the events file")
}
