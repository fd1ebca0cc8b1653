package session

import (
	"fmt"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/stats"
)

// Snapshot is a read-only copy of everything a presentation layer shows.
type Snapshot struct {
	Current       *domain.Flashcard    `json:"current"`
	CurrentStatus *domain.CardStatus   `json:"currentStatus"`
	Index         int                  `json:"index"`
	FaceUp        bool                 `json:"faceUp"`
	Policy        Policy               `json:"policy"`
	Cards         []domain.Flashcard   `json:"cards"`
	Statuses      []domain.CardStatus  `json:"cardStatus"`
	History       []domain.ReviewEvent `json:"reviewHistory"`
	Stats         domain.Stats         `json:"stats"`
	DueCount      int                  `json:"dueCount"`
	ReviewedToday int                  `json:"reviewedToday"`
}

// Snapshot copies the current session state.
func (s *Session) Snapshot() Snapshot {
	now := s.now()
	snap := Snapshot{
		Index:         s.index,
		FaceUp:        s.faceUp,
		Policy:        s.policy,
		Cards:         s.deck.Cards(),
		Statuses:      s.deck.Statuses(),
		History:       s.deck.History(),
		Stats:         s.stats.Stats(),
		DueCount:      len(s.deck.Due(now)),
		ReviewedToday: s.stats.ReviewedOn(now).Total(),
	}
	if c, err := s.Current(); err == nil {
		st, _ := s.deck.Status(c.ID)
		snap.Current = &c
		snap.CurrentStatus = &st
	}
	return snap
}

// CardView is one card with its schedule and review performance.
type CardView struct {
	Card        domain.Flashcard  `json:"card"`
	Status      domain.CardStatus `json:"status"`
	Performance stats.Performance `json:"performance"`
	Due         bool              `json:"due"`
}

// Card returns the view of a single card.
func (s *Session) Card(id string) (CardView, error) {
	card, ok := s.deck.Card(id)
	if !ok {
		return CardView{}, fmt.Errorf("card %s: %w", id, domain.ErrUnknownCard)
	}
	st, _ := s.deck.Status(id)
	return CardView{
		Card:        card,
		Status:      st,
		Performance: stats.PerformanceOf(s.deck.HistoryFor(id), id),
		Due:         st.IsDue(s.now()),
	}, nil
}

// Cards returns the views of every card in deck order.
func (s *Session) Cards() []CardView {
	now := s.now()
	history := s.deck.History()
	cards := s.deck.Cards()
	out := make([]CardView, 0, len(cards))
	for _, c := range cards {
		st, _ := s.deck.Status(c.ID)
		out = append(out, CardView{
			Card:        c,
			Status:      st,
			Performance: stats.PerformanceOf(history, c.ID),
			Due:         st.IsDue(now),
		})
	}
	return out
}

// Flashcards returns the deck in order.
func (s *Session) Flashcards() []domain.Flashcard {
	return s.deck.Cards()
}

// Due returns the cards that are due now, in deck order.
func (s *Session) Due() []domain.Flashcard {
	return s.deck.Due(s.now())
}

// Summary is the dashboard view of the review statistics.
type Summary struct {
	Stats         domain.Stats `json:"stats"`
	Accuracy      int          `json:"accuracy"`
	Cards         int          `json:"cards"`
	DueCount      int          `json:"dueCount"`
	Mastered      int          `json:"mastered"`
	ReviewedToday int          `json:"reviewedToday"`
	LastDays      []stats.Day  `json:"lastDays"`
}

// Summary aggregates the stats over the last days calendar days.
func (s *Session) Summary(days int) Summary {
	now := s.now()
	cards := s.deck.Cards()
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return Summary{
		Stats:         s.stats.Stats(),
		Accuracy:      s.stats.Accuracy(),
		Cards:         len(cards),
		DueCount:      len(s.deck.Due(now)),
		Mastered:      stats.MasteredCount(s.deck.History(), ids),
		ReviewedToday: s.stats.ReviewedOn(now).Total(),
		LastDays:      s.stats.LastNDays(days, now),
	}
}
