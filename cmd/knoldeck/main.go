// Package main provides the CLI entrypoint for knoldeck.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knoldeck/internal/config"
	"github.com/conorfennell/knoldeck/internal/deck"
	"github.com/conorfennell/knoldeck/internal/importer"
	"github.com/conorfennell/knoldeck/internal/session"
	"github.com/conorfennell/knoldeck/internal/srs"
	"github.com/conorfennell/knoldeck/internal/storage"
	"github.com/conorfennell/knoldeck/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "knoldeck",
		Short:        "Spaced-repetition flashcards",
		SilenceUsage: true,
	}
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newCardsCmd())
	rootCmd.AddCommand(newResetCmd())
	return rootCmd
}

// app is everything a command needs once configuration is resolved.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *storage.DB
	session *session.Session
}

func openApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	loc, err := cfg.Session.Location()
	if err != nil {
		return nil, err
	}
	policy, err := session.ParsePolicy(cfg.Session.Policy)
	if err != nil {
		return nil, err
	}
	sched, err := srs.NewScheduler(cfg.Scheduler)
	if err != nil {
		return nil, fmt.Errorf("failed to configure scheduler: %w", err)
	}

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("Database opened", "path", cfg.Storage.Path)

	s, err := session.Open(cmd.Context(), session.Options{
		Scheduler:  sched,
		Policy:     policy,
		Location:   loc,
		Repository: storage.NewBundleRepository(db, cfg.Storage.Key, logger),
		Logger:     logger,
	}, deck.SampleDeck())
	if err := tolerateUnsaved(logger, err); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, db: db, session: s}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database", "error", err)
	}
}

// tolerateUnsaved downgrades a save failure to a warning; the in-memory
// state is still valid.
func tolerateUnsaved(logger *slog.Logger, err error) error {
	if errors.Is(err, session.ErrNotPersisted) {
		logger.Warn("Continuing with unsaved changes", "error", err)
		return nil
	}
	return err
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the review session over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("addr", config.Default().Server.Addr, "Address to listen on")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      web.NewServer(a.session, a.logger),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting server", "addr", srv.Addr, "policy", a.session.Policy())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <dir|file|git-url>...",
		Short: "Add cards from markdown deck files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	cmd.Flags().String("repos-dir", config.Default().Import.ReposDir, "Directory git sources are checked out into")
	cmd.Flags().BoolP("quiet", "q", false, "Hide git progress")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	im := importer.New(a.session, a.cfg.Import.ReposDir, a.logger)
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		im.WithProgress(cmd.ErrOrStderr())
	}

	out := cmd.OutOrStdout()
	for _, src := range args {
		res, err := im.Import(cmd.Context(), src)
		if err := tolerateUnsaved(a.logger, err); err != nil {
			return fmt.Errorf("import %s: %w", src, err)
		}
		fmt.Fprintf(out, "%s: %d files, %d cards parsed, %d added, %d already in deck\n",
			src, res.Files, res.Parsed, res.Added, res.Skipped)
		for _, e := range res.Errors {
			fmt.Fprintf(out, "  - %s\n", e)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show review statistics",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
	cmd.Flags().Int("days", 7, "Number of days to chart")
	cmd.Flags().Bool("json", false, "Print the summary as JSON")
	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
	days, _ := cmd.Flags().GetInt("days")
	if days < 1 {
		return fmt.Errorf("--days must be at least 1")
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sum := a.session.Summary(days)
	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}

	fmt.Fprintf(out, "Cards:          %d (%d due, %d mastered)\n", sum.Cards, sum.DueCount, sum.Mastered)
	fmt.Fprintf(out, "Reviews:        %d (%d known, %d unknown)\n", sum.Stats.TotalReviews, sum.Stats.KnownCount, sum.Stats.UnknownCount)
	fmt.Fprintf(out, "Accuracy:       %d%%\n", sum.Accuracy)
	fmt.Fprintf(out, "Reviewed today: %d\n\n", sum.ReviewedToday)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tKNOWN\tUNKNOWN")
	for _, d := range sum.LastDays {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", d.Date, d.Known, d.Unknown)
	}
	return tw.Flush()
}

func newCardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cards",
		Short: "List cards with their schedule",
		Args:  cobra.NoArgs,
		RunE:  runCards,
	}
}

func runCards(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	loc, _ := a.cfg.Session.Location()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFRONT\tDUE\tREVIEWS\tACCURACY\tEASE")
	for _, v := range a.session.Cards() {
		due := v.Status.DueDate.Time(loc).Format("2006-01-02 15:04")
		if v.Due {
			due = "now"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d%%\t%.2f\n",
			truncate(v.Card.ID, 8), truncate(v.Card.Front, 40), due,
			v.Status.ReviewCount, v.Performance.Accuracy, v.Status.EaseFactor)
	}
	return tw.Flush()
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard all cards and reviews and restore the sample deck",
		Args:  cobra.NoArgs,
		RunE:  runReset,
	}
	cmd.Flags().Bool("yes", false, "Confirm the reset")
	return cmd
}

func runReset(cmd *cobra.Command, _ []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return fmt.Errorf("reset discards every card and review; pass --yes to confirm")
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.Reset(cmd.Context(), deck.SampleDeck()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deck reset to %d sample cards.\n", len(a.session.Flashcards()))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
