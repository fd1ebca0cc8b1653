// Package importer adds cards from markdown deck files to a session.
package importer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/gitsource"
	"github.com/conorfennell/knoldeck/internal/knol"
	"github.com/conorfennell/knoldeck/internal/parser"
)

// Deck is the part of a session the importer writes to.
type Deck interface {
	Flashcards() []domain.Flashcard
	AddCards(ctx context.Context, contents []domain.Content) ([]domain.Flashcard, error)
}

// Result summarizes one import.
type Result struct {
	Files   int
	Parsed  int
	Added   int
	Skipped int
	Errors  []error
}

// Importer reads deck files from a directory, a single file or a git repository.
type Importer struct {
	deck     Deck
	reposDir string
	progress io.Writer
	logger   *slog.Logger
}

// New returns an importer that checks out git sources under reposDir.
func New(deck Deck, reposDir string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{deck: deck, reposDir: reposDir, logger: logger.With("component", "importer")}
}

// WithProgress sends git clone/pull progress to w.
func (im *Importer) WithProgress(w io.Writer) *Importer {
	im.progress = w
	return im
}

// Import adds every card found in src that is not already in the deck.
// Cards are matched by their normalized text.
func (im *Importer) Import(ctx context.Context, src string) (Result, error) {
	path := src
	if gitsource.IsRemote(src) {
		local, err := gitsource.LocalPath(im.reposDir, src)
		if err != nil {
			return Result{}, err
		}
		if err := gitsource.Sync(ctx, src, local, im.progress); err != nil {
			return Result{}, err
		}
		path = local
	}

	var res Result
	seen := knol.NewSet(im.deck.Flashcards())
	var fresh []domain.Content

	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Files++
		cards, parseErr := parser.ParseFile(p)
		if parseErr != nil {
			res.Errors = append(res.Errors, fmt.Errorf("parsing %s: %w", p, parseErr))
			return nil
		}
		for _, c := range cards {
			res.Parsed++
			if !seen.Add(c) {
				res.Skipped++
				continue
			}
			fresh = append(fresh, c)
		}
		return nil
	})
	if walkErr != nil {
		if os.IsNotExist(walkErr) {
			return res, fmt.Errorf("import source %s: %w", src, walkErr)
		}
		return res, fmt.Errorf("error walking %s: %w", path, walkErr)
	}

	added, err := im.deck.AddCards(ctx, fresh)
	res.Added = len(added)

	im.logger.Info("Import complete",
		"source", src,
		"files", res.Files,
		"parsed_cards", res.Parsed,
		"added", res.Added,
		"skipped", res.Skipped,
		"errors", len(res.Errors),
	)
	return res, err
}
