package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"hotdelta/internal/analysis"
	"hotdelta/internal/decl"
	"hotdelta/internal/errors"
	"hotdelta/internal/report"
	"hotdelta/internal/storage"
	"hotdelta/internal/syntax"
)

var (
	sessionCaps        capabilityOptions
	sessionCompilation string
	sessionDryRun      bool
	sessionRunLimit    int
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage hot reload sessions",
	Long: `A session remembers the declarations of a running program. Each apply
compares the source tree against that baseline; edits without rude
diagnostics advance the baseline, as the running process has taken them.`,
}

var sessionStartCmd = &cobra.Command{
	Use:   "start DIR",
	Short: "Start a session with DIR as the baseline",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionStart,
}

var sessionApplyCmd = &cobra.Command{
	Use:   "apply ID",
	Short: "Analyze the source tree against the session baseline",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionApply,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a session and its recent runs",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a session and its history",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDelete,
}

func init() {
	sessionStartCmd.Flags().StringVar(&sessionCaps.profile, "profile", "", "Capability profile of the running process")
	sessionStartCmd.Flags().StringVar(&sessionCaps.caps, "caps", "", "Explicit capability list, overrides --profile")
	sessionStartCmd.Flags().StringVar(&sessionCompilation, "compilation", "", "Compilation from hotdelta.toml (default: the first)")
	sessionApplyCmd.Flags().BoolVar(&sessionDryRun, "dry-run", false, "Record the run without advancing the baseline")
	sessionShowCmd.Flags().IntVar(&sessionRunLimit, "runs", 10, "Number of recent runs to show")

	sessionCmd.AddCommand(sessionStartCmd, sessionApplyCmd, sessionShowCmd, sessionListCmd, sessionDeleteCmd)
	rootCmd.AddCommand(sessionCmd)
}

// openStore opens the session store configured for the project root.
func (e *env) openStore() (*storage.DB, *storage.SessionStore, error) {
	db, err := storage.Open(e.cfg.SessionDB(e.root), e.logger)
	if err != nil {
		return nil, nil, err
	}
	return db, storage.NewSessionStore(db), nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runSessionStart(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	sess, err := startSession(ctx, e, args[0], sessionCompilation, sessionCaps)
	if err != nil {
		return err
	}
	if e.format == report.FormatJSON {
		return report.WriteSession(cmd.OutOrStdout(), sess, nil, e.format)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Session %s started: %d documents, capabilities %s\n",
		sess.ID, sess.Documents, sess.Capabilities)
	return nil
}

// startSession records the current state of dir as a new session.
func startSession(ctx context.Context, e *env, dir, compName string, caps capabilityOptions) (*storage.Session, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.New(errors.InvalidInput, "resolve "+dir, err)
	}
	c, m, err := selectCompilation(abs, compName)
	if err != nil {
		return nil, err
	}
	set, profile, err := caps.resolve(e.root, e.cfg, m)
	if err != nil {
		return nil, err
	}
	docs, err := loadCompilation(ctx, abs, c)
	if err != nil {
		return nil, err
	}

	db, store, err := e.openStore()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	sess := &storage.Session{Name: c.name, Root: abs, Profile: profile, Capabilities: set}
	if err := store.Create(ctx, sess, docs); err != nil {
		return nil, err
	}
	e.logger.Info("Session started", "session", sess.ID, "root", abs, "documents", len(docs))
	return sess, nil
}

func loadCompilation(ctx context.Context, dir string, c compilation) ([]*decl.Document, error) {
	texts, err := readTree(dir, c)
	if err != nil {
		return nil, err
	}
	return loadTexts(ctx, syntax.NewLoader(), texts)
}

func runSessionApply(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	db, store, err := e.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := applySession(ctx, e, store, args[0], !sessionDryRun)
	if err != nil {
		return err
	}
	if err := report.Write(cmd.OutOrStdout(), res, e.format); err != nil {
		return err
	}
	if res.HasRudeEdits() {
		return errRudeEdits
	}
	return nil
}

// applySession analyzes the session root against its baseline and records
// the run. The baseline advances when advance is set and the run has no
// rude edits.
func applySession(ctx context.Context, e *env, store *storage.SessionStore, id string, advance bool) (*analysis.Result, error) {
	sess, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	baseline, err := store.Baseline(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	c, _, err := selectCompilation(sess.Root, sess.Name)
	if err != nil {
		return nil, err
	}
	current, err := loadCompilation(ctx, sess.Root, c)
	if err != nil {
		return nil, err
	}

	res, err := e.newEngine().Analyze(ctx, analysis.Request{
		Name:         sess.Name,
		Old:          baseline,
		New:          current,
		Capabilities: sess.Capabilities,
		Model:        c.model,
	})
	if err != nil {
		return nil, err
	}

	summary, err := report.DeterministicEncode(res.Summary)
	if err != nil {
		return nil, errors.New(errors.InternalError, "encode summary", err)
	}
	run := &storage.Run{
		ID:         res.RunID,
		SessionID:  sess.ID,
		Edits:      res.Summary.TotalEdits,
		Rude:       res.Summary.Rude,
		Operations: len(res.Operations),
		Applied:    advance && !res.HasRudeEdits() && res.Summary.TotalEdits > 0,
		Summary:    string(summary),
	}
	if err := store.RecordRun(ctx, run, current); err != nil {
		return nil, err
	}
	e.logger.Info("Session run recorded",
		"session", sess.ID, "run", run.ID, "edits", run.Edits, "rude", run.Rude, "applied", run.Applied)
	return res, nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	db, store, err := e.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	sess, err := store.Get(ctx, args[0])
	if err != nil {
		return err
	}
	runs, err := store.Runs(ctx, sess.ID, sessionRunLimit)
	if err != nil {
		return err
	}
	return report.WriteSession(cmd.OutOrStdout(), sess, runs, e.format)
}

func runSessionList(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	db, store, err := e.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := store.List(commandContext(cmd))
	if err != nil {
		return err
	}
	return report.WriteSessions(cmd.OutOrStdout(), sessions, e.format)
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	db, store, err := e.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	sess, err := store.Get(ctx, args[0])
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, sess.ID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Session %s deleted\n", sess.ID)
	return nil
}
