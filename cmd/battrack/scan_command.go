package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"battrack/internal/bus"
	"battrack/internal/ledger"
	"battrack/internal/logging"
	"battrack/internal/notify"
	"battrack/internal/scan"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:          "scan",
		Short:        "Interactive operator scan console",
		Long:         "Read scanned tokens from stdin and drive the operator state machine.\nCommands: create <type|name>, finish <model>, reprint, expedition, sav, new qr.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			// Session chatter goes to the log file; the terminal stays
			// reserved for operator prompts and responses.
			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, "scan.log")},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			b, err := bus.NewRedisBus(signalCtx, cfg.Bus, logging.WithComponent(logger, "bus"))
			if err != nil {
				return fmt.Errorf("connect bus: %w", err)
			}
			defer b.Close()

			store := ledger.NewStore(cfg, version, logging.WithComponent(logger, "ledger"))
			if err := store.EnsureFiles(); err != nil {
				return err
			}

			topics := bus.NewTopics(cfg.Bus.TopicPrefix)
			notifier := notify.FromConfig(cfg.Notify, logging.WithComponent(logger, "notify"))
			session := scan.NewSession(store, b, topics, notifier, cfg.Scan, logging.WithComponent(logger, "scan"))

			out := cmd.OutOrStdout()
			if err := b.Subscribe(signalCtx, []string{topics.OperationResult(), topics.Status()},
				func(_ context.Context, msg bus.Message) {
					if msg.Topic == topics.Status() {
						fmt.Fprintf(out, "[printer %s]\n", msg.Payload)
						return
					}
					var res bus.OperationResult
					if json.Unmarshal(msg.Payload, &res) != nil {
						return
					}
					marker := "ok"
					if !res.Success {
						marker = "failed"
					}
					fmt.Fprintf(out, "[%s %s] %s\n", res.Operation, marker, res.Message)
				}); err != nil {
				return fmt.Errorf("subscribe results: %w", err)
			}

			interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
			if interactive {
				fmt.Fprintln(out, "battrack scan console (Ctrl-D to exit)")
			}

			lines := make(chan string)
			scanner := bufio.NewScanner(cmd.InOrStdin())
			go func() {
				defer close(lines)
				for scanner.Scan() {
					select {
					case lines <- scanner.Text():
					case <-signalCtx.Done():
						return
					}
				}
			}()

			for {
				if interactive {
					fmt.Fprint(out, "> ")
				}
				select {
				case <-signalCtx.Done():
					fmt.Fprintln(out)
					return nil
				case line, ok := <-lines:
					if !ok {
						return scanner.Err()
					}
					for _, msg := range session.Input(signalCtx, line) {
						fmt.Fprintln(out, msg)
					}
				}
			}
		},
	}
}
