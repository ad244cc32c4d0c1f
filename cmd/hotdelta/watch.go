package main

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"hotdelta/internal/errors"
	"hotdelta/internal/logging"
	"hotdelta/internal/report"
	"hotdelta/internal/watcher"
)

var (
	watchSession     string
	watchCaps        capabilityOptions
	watchCompilation string
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Re-analyze on every save against a session baseline",
	Long: `Watch DIR and analyze every settled batch of document changes against the
session baseline. Changes without rude edits advance the baseline. A new
session is started unless --session names an existing one.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchSession, "session", "", "Existing session to continue")
	watchCmd.Flags().StringVar(&watchCaps.profile, "profile", "", "Capability profile of the running process")
	watchCmd.Flags().StringVar(&watchCaps.caps, "caps", "", "Explicit capability list, overrides --profile")
	watchCmd.Flags().StringVar(&watchCompilation, "compilation", "", "Compilation from hotdelta.toml (default: the first)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	if e.cfg.Logging.File != "" {
		fileLogger, f, err := logging.NewFileLogger(e.cfg.Logging.File, slog.LevelInfo)
		if err != nil {
			return errors.New(errors.InvalidInput, "open log file", err)
		}
		defer f.Close()
		e.logger = slog.New(logging.NewTeeHandler(e.logger.Handler(), fileLogger.Handler()))
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id := watchSession
	if id == "" {
		sess, err := startSession(ctx, e, args[0], watchCompilation, watchCaps)
		if err != nil {
			return err
		}
		id = sess.ID
	}

	db, store, err := e.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	sess, err := store.Get(ctx, id)
	if err != nil {
		return err
	}

	cfg := watcher.DefaultConfig()
	cfg.DebounceMs = e.cfg.Watch.DebounceMs

	out := cmd.OutOrStdout()
	var mu sync.Mutex
	handler := func(root string, events []watcher.Event) {
		mu.Lock()
		defer mu.Unlock()
		e.logger.Info("Documents changed", "root", root, "events", len(events))
		res, err := applySession(ctx, e, store, sess.ID, true)
		if err != nil {
			e.logger.Error("Analysis failed", "session", sess.ID, "error", err)
			return
		}
		if err := report.Write(out, res, e.format); err != nil {
			e.logger.Error("Report failed", "error", err)
		}
	}

	w, err := watcher.New(sess.Root, cfg, e.logger, handler)
	if err != nil {
		return errors.New(errors.InternalError, "create watcher", err)
	}
	if err := w.Start(ctx); err != nil {
		return errors.New(errors.InternalError, "start watcher", err)
	}
	defer w.Stop()

	e.logger.Warn("Watching for changes", "session", sess.ID, "root", sess.Root)
	<-ctx.Done()
	return nil
}
