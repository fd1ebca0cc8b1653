// Package deck holds the flashcards, their scheduling status and the review history.
package deck

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// InitialStatusFunc builds the status of a card that has never been reviewed.
type InitialStatusFunc func(cardID string, now domain.Timestamp) domain.CardStatus

// NormalizeFunc brings a restored status back into its valid range.
type NormalizeFunc func(domain.CardStatus) domain.CardStatus

// Store is the in-memory card collection.
// Cards keep insertion order; every card has exactly one status.
type Store struct {
	cards     []domain.Flashcard
	status    map[string]domain.CardStatus
	history   []domain.ReviewEvent
	initial   InitialStatusFunc
	normalize NormalizeFunc
	newID     func() string
}

// New returns an empty store. initial is used for cards added or restored without a status.
func New(initial InitialStatusFunc) *Store {
	return &Store{
		status:  make(map[string]domain.CardStatus),
		initial: initial,
		newID:   uuid.NewString,
	}
}

// WithNormalize makes Restore pass every saved status through f.
func (s *Store) WithNormalize(f NormalizeFunc) *Store {
	s.normalize = f
	return s
}

// Len returns the number of cards.
func (s *Store) Len() int {
	return len(s.cards)
}

// At returns the card at position i in deck order.
func (s *Store) At(i int) (domain.Flashcard, bool) {
	if i < 0 || i >= len(s.cards) {
		return domain.Flashcard{}, false
	}
	return s.cards[i], true
}

// Position returns the deck position of id, or -1.
func (s *Store) Position(id string) int {
	return slices.IndexFunc(s.cards, func(c domain.Flashcard) bool { return c.ID == id })
}

// Card looks up a card by id.
func (s *Store) Card(id string) (domain.Flashcard, bool) {
	i := s.Position(id)
	if i < 0 {
		return domain.Flashcard{}, false
	}
	return s.cards[i], true
}

// Status looks up the scheduling status of a card.
func (s *Store) Status(id string) (domain.CardStatus, bool) {
	st, ok := s.status[id]
	return st, ok
}

// Cards returns a copy of the deck in order.
func (s *Store) Cards() []domain.Flashcard {
	out := make([]domain.Flashcard, len(s.cards))
	for i, c := range s.cards {
		out[i] = copyCard(c)
	}
	return out
}

// Statuses returns the card statuses in deck order.
func (s *Store) Statuses() []domain.CardStatus {
	out := make([]domain.CardStatus, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, s.status[c.ID])
	}
	return out
}

// History returns a copy of the review log in chronological order.
func (s *Store) History() []domain.ReviewEvent {
	out := make([]domain.ReviewEvent, len(s.history))
	copy(out, s.history)
	return out
}

// HistoryFor returns the review events of one card.
func (s *Store) HistoryFor(id string) []domain.ReviewEvent {
	var out []domain.ReviewEvent
	for _, e := range s.history {
		if e.CardID == id {
			out = append(out, e)
		}
	}
	return out
}

// Due returns the cards whose due date is at or before now, in deck order.
func (s *Store) Due(now domain.Timestamp) []domain.Flashcard {
	var out []domain.Flashcard
	for _, c := range s.cards {
		if s.status[c.ID].IsDue(now) {
			out = append(out, copyCard(c))
		}
	}
	return out
}

// Add appends a new card with a fresh id and a default status.
func (s *Store) Add(content domain.Content, now domain.Timestamp) (domain.Flashcard, error) {
	if err := validate(content); err != nil {
		return domain.Flashcard{}, err
	}
	card := domain.Flashcard{
		ID:        s.newID(),
		Front:     content.Front,
		Back:      content.Back,
		CreatedAt: now,
	}
	s.cards = append(s.cards, card)
	s.status[card.ID] = s.initial(card.ID, now)
	return card, nil
}

// Update replaces the text of a card. The scheduling status is left alone.
func (s *Store) Update(id string, content domain.Content) (domain.Flashcard, error) {
	if err := validate(content); err != nil {
		return domain.Flashcard{}, err
	}
	i := s.Position(id)
	if i < 0 {
		return domain.Flashcard{}, fmt.Errorf("update %s: %w", id, domain.ErrUnknownCard)
	}
	s.cards[i].Front = content.Front
	s.cards[i].Back = content.Back
	return copyCard(s.cards[i]), nil
}

// Delete removes a card, its status and all of its review events in one step.
// It returns the position the card occupied.
func (s *Store) Delete(id string) (int, error) {
	i := s.Position(id)
	if i < 0 {
		return -1, fmt.Errorf("delete %s: %w", id, domain.ErrUnknownCard)
	}
	s.cards = slices.Delete(s.cards, i, i+1)
	delete(s.status, id)
	s.history = slices.DeleteFunc(s.history, func(e domain.ReviewEvent) bool { return e.CardID == id })
	return i, nil
}

// ApplyReview records event, replaces the card's status and stamps its last-reviewed time.
// Nothing changes when the card is unknown.
func (s *Store) ApplyReview(event domain.ReviewEvent, status domain.CardStatus) error {
	i := s.Position(event.CardID)
	if _, ok := s.status[event.CardID]; !ok || i < 0 {
		return fmt.Errorf("review %s: %w", event.CardID, domain.ErrUnknownCard)
	}
	status.CardID = event.CardID
	at := event.Date
	s.history = append(s.history, event)
	s.status[event.CardID] = status
	s.cards[i].LastReviewed = &at
	return nil
}

// RestoreReport describes what Restore had to repair.
type RestoreReport struct {
	Cards            int
	DuplicateCards   int
	MissingStatuses  int
	OrphanedStatuses int
	OrphanedEvents   int
	ClampedStatuses  int
}

// Repaired reports whether the bundle needed any fix.
func (r RestoreReport) Repaired() bool {
	return r.DuplicateCards+r.MissingStatuses+r.OrphanedStatuses+r.OrphanedEvents+r.ClampedStatuses > 0
}

// Restore replaces the store contents with b. Cards without a status get a
// default one; statuses and events that reference no card are dropped;
// out-of-range statuses are normalized when a NormalizeFunc is set.
func (s *Store) Restore(b domain.Bundle, now domain.Timestamp) RestoreReport {
	var report RestoreReport
	s.cards = make([]domain.Flashcard, 0, len(b.Flashcards))
	s.status = make(map[string]domain.CardStatus, len(b.Flashcards))
	s.history = make([]domain.ReviewEvent, 0, len(b.ReviewHistory))

	seen := make(map[string]bool, len(b.Flashcards))
	for _, c := range b.Flashcards {
		if seen[c.ID] {
			report.DuplicateCards++
			continue
		}
		seen[c.ID] = true
		s.cards = append(s.cards, copyCard(c))
	}
	for _, st := range b.CardStatus {
		if !seen[st.CardID] {
			report.OrphanedStatuses++
			continue
		}
		if s.normalize != nil {
			if fixed := s.normalize(st); fixed != st {
				report.ClampedStatuses++
				st = fixed
			}
		}
		s.status[st.CardID] = st
	}
	for _, c := range s.cards {
		if _, ok := s.status[c.ID]; !ok {
			report.MissingStatuses++
			s.status[c.ID] = s.initial(c.ID, now)
		}
	}
	for _, e := range b.ReviewHistory {
		if !seen[e.CardID] {
			report.OrphanedEvents++
			continue
		}
		s.history = append(s.history, e)
	}
	report.Cards = len(s.cards)
	return report
}

func validate(c domain.Content) error {
	if strings.TrimSpace(c.Front) == "" {
		return domain.ErrInvalidContent
	}
	return nil
}

func copyCard(c domain.Flashcard) domain.Flashcard {
	if c.LastReviewed != nil {
		at := *c.LastReviewed
		c.LastReviewed = &at
	}
	return c
}
