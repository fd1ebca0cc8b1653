// Package session drives a review session over a deck: which card is shown,
// whether its answer is revealed, and how judgements update the deck and stats.
//
// A Session is owned by one caller and is not safe for concurrent use.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/conorfennell/knoldeck/internal/deck"
	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/srs"
	"github.com/conorfennell/knoldeck/internal/stats"
)

// ErrNotPersisted wraps a save failure after a mutation that was applied in memory.
var ErrNotPersisted = errors.New("session: state not persisted")

// Repository loads and saves the session bundle.
type Repository interface {
	// Load returns false when nothing has been saved.
	Load(ctx context.Context) (domain.Bundle, bool, error)
	Save(ctx context.Context, b domain.Bundle) error
}

// Options configures a Session. Scheduler is required.
type Options struct {
	Scheduler  *srs.Scheduler
	Policy     Policy
	Location   *time.Location
	Clock      func() time.Time
	Repository Repository
	Logger     *slog.Logger
}

// Session is the review state machine.
type Session struct {
	deck   *deck.Store
	stats  *stats.Aggregator
	sched  *srs.Scheduler
	policy Policy
	repo   Repository
	clock  func() time.Time
	logger *slog.Logger

	index  int
	faceUp bool
}

// New returns a session over an empty deck.
func New(opts Options) (*Session, error) {
	if opts.Scheduler == nil {
		return nil, errors.New("session: scheduler is required")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Session{
		deck:   newDeck(opts.Scheduler),
		stats:  stats.New(opts.Location),
		sched:  opts.Scheduler,
		policy: opts.Policy,
		repo:   opts.Repository,
		clock:  opts.Clock,
		logger: opts.Logger.With("component", "session"),
	}, nil
}

// Open builds a session from the repository, seeding it with defaults when
// nothing was saved before.
func Open(ctx context.Context, opts Options, defaults []domain.Content) (*Session, error) {
	s, err := New(opts)
	if err != nil {
		return nil, err
	}
	if s.repo == nil {
		return s, s.seed(ctx, defaults)
	}

	b, ok, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		s.logger.Info("No saved session, starting from the default deck", "cards", len(defaults))
		return s, s.seed(ctx, defaults)
	}

	report := s.deck.Restore(b, s.now())
	rebuilt := s.stats.Restore(b.Stats, s.deck.History())
	s.logger.Info("Session restored", "cards", report.Cards, "reviews", len(s.deck.History()))
	if report.Repaired() || rebuilt {
		s.logger.Warn("Saved session was inconsistent and has been repaired",
			"duplicate_cards", report.DuplicateCards,
			"missing_statuses", report.MissingStatuses,
			"orphaned_statuses", report.OrphanedStatuses,
			"orphaned_events", report.OrphanedEvents,
			"clamped_statuses", report.ClampedStatuses,
			"stats_rebuilt", rebuilt,
		)
		if err := s.persist(ctx); err != nil {
			return s, err
		}
	}
	return s, nil
}

func newDeck(sched *srs.Scheduler) *deck.Store {
	return deck.New(sched.InitialStatus).WithNormalize(sched.Normalize)
}

func (s *Session) seed(ctx context.Context, defaults []domain.Content) error {
	now := s.now()
	for _, c := range defaults {
		if _, err := s.deck.Add(c, now); err != nil {
			return fmt.Errorf("seed deck: %w", err)
		}
	}
	return s.persist(ctx)
}

// Reset discards all cards, reviews and stats and starts over from defaults.
func (s *Session) Reset(ctx context.Context, defaults []domain.Content) error {
	s.deck = newDeck(s.sched)
	s.stats = stats.New(s.stats.Location())
	s.index, s.faceUp = 0, false
	s.logger.Info("Session reset", "cards", len(defaults))
	return s.seed(ctx, defaults)
}

func (s *Session) now() domain.Timestamp {
	return domain.FromTime(s.clock())
}

// Policy returns the advance policy in use.
func (s *Session) Policy() Policy {
	return s.policy
}

// Current returns the card being shown.
func (s *Session) Current() (domain.Flashcard, error) {
	c, ok := s.deck.At(s.index)
	if !ok {
		return domain.Flashcard{}, domain.ErrEmptyDeck
	}
	return c, nil
}

// FaceUp reports whether the current card's answer is revealed.
func (s *Session) FaceUp() bool {
	return s.faceUp
}

// Flip toggles the current card between question and answer.
func (s *Session) Flip() (bool, error) {
	if s.deck.Len() == 0 {
		return false, domain.ErrEmptyDeck
	}
	s.faceUp = !s.faceUp
	return s.faceUp, nil
}

// Review is the outcome of a successful Judge.
type Review struct {
	Event  domain.ReviewEvent `json:"event"`
	Status domain.CardStatus  `json:"status"`
}

// Judge records the user's verdict on the current card, reschedules it and
// moves on. The answer must have been revealed first; otherwise nothing
// changes and ErrNotRevealed is returned.
func (s *Session) Judge(ctx context.Context, known bool) (Review, error) {
	card, err := s.Current()
	if err != nil {
		return Review{}, err
	}
	if !s.faceUp {
		return Review{}, domain.ErrNotRevealed
	}
	status, ok := s.deck.Status(card.ID)
	if !ok {
		return Review{}, fmt.Errorf("judge %s: %w", card.ID, domain.ErrUnknownCard)
	}

	now := s.now()
	event := domain.ReviewEvent{CardID: card.ID, Date: now, Known: known}
	next := s.sched.NextStatus(status, known, now)
	if err := s.deck.ApplyReview(event, next); err != nil {
		return Review{}, err
	}
	s.stats.Record(event)

	s.logger.Debug("Card judged",
		"card_id", card.ID,
		"known", known,
		"review_count", next.ReviewCount,
		"ease_factor", next.EaseFactor,
		"due", next.DueDate.Time(s.stats.Location()),
	)

	s.advance(now)
	return Review{Event: event, Status: next}, s.persist(ctx)
}

// Advance moves to the next card according to the policy and hides the answer.
func (s *Session) Advance() (domain.Flashcard, error) {
	if s.deck.Len() == 0 {
		return domain.Flashcard{}, domain.ErrEmptyDeck
	}
	s.advance(s.now())
	return s.Current()
}

func (s *Session) advance(now domain.Timestamp) {
	s.faceUp = false
	n := s.deck.Len()
	if n == 0 {
		s.index = 0
		return
	}
	next := (s.index + 1) % n
	if s.policy == DueFirst {
		if i := s.mostOverdue(now); i >= 0 {
			next = i
		}
	}
	s.index = next
}

// mostOverdue scans the deck starting after the cursor and returns the due
// card with the earliest due date, or -1.
func (s *Session) mostOverdue(now domain.Timestamp) int {
	n := s.deck.Len()
	best := -1
	var bestDue domain.Timestamp
	for step := 1; step <= n; step++ {
		i := (s.index + step) % n
		card, _ := s.deck.At(i)
		st, ok := s.deck.Status(card.ID)
		if !ok || !st.IsDue(now) {
			continue
		}
		if best < 0 || st.DueDate < bestDue {
			best, bestDue = i, st.DueDate
		}
	}
	return best
}

// AddCard appends a new card to the deck.
func (s *Session) AddCard(ctx context.Context, content domain.Content) (domain.Flashcard, error) {
	card, err := s.deck.Add(content, s.now())
	if err != nil {
		return domain.Flashcard{}, err
	}
	s.logger.Debug("Card added", "card_id", card.ID)
	return card, s.persist(ctx)
}

// UpdateCard replaces the text of a card.
func (s *Session) UpdateCard(ctx context.Context, id string, content domain.Content) (domain.Flashcard, error) {
	card, err := s.deck.Update(id, content)
	if err != nil {
		return domain.Flashcard{}, err
	}
	return card, s.persist(ctx)
}

// DeleteCard removes a card together with its status and review history.
// The cursor keeps pointing at a valid card, or 0 when the deck is empty.
func (s *Session) DeleteCard(ctx context.Context, id string) error {
	pos, err := s.deck.Delete(id)
	if err != nil {
		return err
	}
	switch {
	case pos < s.index:
		s.index--
	case pos == s.index:
		s.faceUp = false
	}
	if s.index >= s.deck.Len() {
		s.index = 0
	}
	s.stats.Rebuild(s.deck.History())
	s.logger.Debug("Card deleted", "card_id", id, "remaining", s.deck.Len())
	return s.persist(ctx)
}

// Bundle returns the persistable state.
func (s *Session) Bundle() domain.Bundle {
	return domain.Bundle{
		Flashcards:    s.deck.Cards(),
		CardStatus:    s.deck.Statuses(),
		ReviewHistory: s.deck.History(),
		Stats:         s.stats.Stats(),
	}
}

func (s *Session) persist(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Save(ctx, s.Bundle()); err != nil {
		s.logger.Warn("Failed to save session", "error", err)
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return nil
}

// AddCards appends several cards and saves once. Nothing is added when any
// content is invalid.
func (s *Session) AddCards(ctx context.Context, contents []domain.Content) ([]domain.Flashcard, error) {
	now := s.now()
	for _, c := range contents {
		if strings.TrimSpace(c.Front) == "" {
			return nil, domain.ErrInvalidContent
		}
	}
	added := make([]domain.Flashcard, 0, len(contents))
	for _, c := range contents {
		card, err := s.deck.Add(c, now)
		if err != nil {
			return added, err
		}
		added = append(added, card)
	}
	if len(added) == 0 {
		return added, nil
	}
	s.logger.Debug("Cards added", "count", len(added))
	return added, s.persist(ctx)
}
