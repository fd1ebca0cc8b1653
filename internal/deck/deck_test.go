package deck

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/knoldeck/internal/domain"
)

const t0 = domain.Timestamp(1_750_000_000_000)

func initial(id string, now domain.Timestamp) domain.CardStatus {
	return domain.CardStatus{CardID: id, DueDate: now, EaseFactor: 2.5}
}

func newStore() *Store {
	s := New(initial)
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("card-%d", n)
	}
	return s
}

func TestAdd(t *testing.T) {
	s := newStore()
	c1, err := s.Add(domain.Content{Front: "Q1", Back: "A1"}, t0)
	require.NoError(t, err)
	c2, err := s.Add(domain.Content{Front: "Q2", Back: "A2"}, t0+5)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []domain.Flashcard{c1, c2}, s.Cards(), "insertion order is preserved")
	assert.Equal(t, t0+5, c2.CreatedAt)
	assert.Nil(t, c2.LastReviewed)

	st, ok := s.Status(c1.ID)
	require.True(t, ok)
	assert.Equal(t, domain.CardStatus{CardID: c1.ID, DueDate: t0, EaseFactor: 2.5}, st)
}

func TestAddUsesUUIDs(t *testing.T) {
	s := New(initial)
	a, err := s.Add(domain.Content{Front: "Q"}, t0)
	require.NoError(t, err)
	b, err := s.Add(domain.Content{Front: "Q"}, t0)
	require.NoError(t, err)
	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestAddRejectsEmptyFront(t *testing.T) {
	s := newStore()
	_, err := s.Add(domain.Content{Front: "   ", Back: "A"}, t0)
	assert.ErrorIs(t, err, domain.ErrInvalidContent)
	assert.Equal(t, 0, s.Len())
}

func TestUpdateKeepsStatus(t *testing.T) {
	s := newStore()
	c, _ := s.Add(domain.Content{Front: "Q", Back: "A"}, t0)
	review := domain.ReviewEvent{CardID: c.ID, Date: t0 + 10, Known: true}
	require.NoError(t, s.ApplyReview(review, domain.CardStatus{ReviewCount: 1, EaseFactor: 2.5}))
	before, _ := s.Status(c.ID)

	updated, err := s.Update(c.ID, domain.Content{Front: "Q'", Back: "A'"})
	require.NoError(t, err)
	assert.Equal(t, "Q'", updated.Front)
	assert.Equal(t, "A'", updated.Back)

	after, _ := s.Status(c.ID)
	assert.Equal(t, before, after)

	_, err = s.Update("missing", domain.Content{Front: "x"})
	assert.ErrorIs(t, err, domain.ErrUnknownCard)
}

func TestDeleteCascades(t *testing.T) {
	s := newStore()
	keep, _ := s.Add(domain.Content{Front: "keep"}, t0)
	drop, _ := s.Add(domain.Content{Front: "drop"}, t0)
	for i, id := range []string{keep.ID, drop.ID, drop.ID, keep.ID} {
		ev := domain.ReviewEvent{CardID: id, Date: t0 + domain.Timestamp(i), Known: i%2 == 0}
		require.NoError(t, s.ApplyReview(ev, domain.CardStatus{ReviewCount: i + 1}))
	}

	pos, err := s.Delete(drop.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	_, ok := s.Card(drop.ID)
	assert.False(t, ok)
	_, ok = s.Status(drop.ID)
	assert.False(t, ok)
	assert.Empty(t, s.HistoryFor(drop.ID))
	assert.Len(t, s.History(), 2)
	for _, e := range s.History() {
		assert.Equal(t, keep.ID, e.CardID)
	}

	_, err = s.Delete(drop.ID)
	assert.ErrorIs(t, err, domain.ErrUnknownCard)
	assert.Equal(t, 1, s.Len())
}

func TestApplyReview(t *testing.T) {
	s := newStore()
	c, _ := s.Add(domain.Content{Front: "Q"}, t0)

	ev := domain.ReviewEvent{CardID: c.ID, Date: t0 + 1000, Known: true}
	next := domain.CardStatus{Known: true, DueDate: t0 + 99, EaseFactor: 2.5, ReviewCount: 1, ConsecutiveCorrect: 1}
	require.NoError(t, s.ApplyReview(ev, next))

	st, _ := s.Status(c.ID)
	next.CardID = c.ID
	assert.Equal(t, next, st)

	card, _ := s.Card(c.ID)
	require.NotNil(t, card.LastReviewed)
	assert.Equal(t, t0+1000, *card.LastReviewed)
	assert.Equal(t, []domain.ReviewEvent{ev}, s.History())
}

func TestApplyReviewUnknownCardChangesNothing(t *testing.T) {
	s := newStore()
	_, _ = s.Add(domain.Content{Front: "Q"}, t0)
	before := s.Statuses()

	err := s.ApplyReview(domain.ReviewEvent{CardID: "ghost", Date: t0}, domain.CardStatus{ReviewCount: 1})
	assert.ErrorIs(t, err, domain.ErrUnknownCard)
	assert.Empty(t, s.History())
	assert.Equal(t, before, s.Statuses())
}

func TestCardsReturnsCopies(t *testing.T) {
	s := newStore()
	c, _ := s.Add(domain.Content{Front: "Q"}, t0)
	require.NoError(t, s.ApplyReview(domain.ReviewEvent{CardID: c.ID, Date: t0 + 1}, domain.CardStatus{}))

	cards := s.Cards()
	*cards[0].LastReviewed = 0
	cards[0].Front = "mutated"

	card, _ := s.Card(c.ID)
	assert.Equal(t, "Q", card.Front)
	assert.Equal(t, t0+1, *card.LastReviewed)
}

func TestDue(t *testing.T) {
	s := newStore()
	a, _ := s.Add(domain.Content{Front: "a"}, t0)
	b, _ := s.Add(domain.Content{Front: "b"}, t0)
	require.NoError(t, s.ApplyReview(domain.ReviewEvent{CardID: a.ID, Date: t0}, domain.CardStatus{DueDate: t0 + 500}))

	due := s.Due(t0 + 10)
	require.Len(t, due, 1)
	assert.Equal(t, b.ID, due[0].ID)
	assert.Len(t, s.Due(t0+500), 2)
}

func TestRestoreRepairsBundle(t *testing.T) {
	s := newStore()
	b := domain.Bundle{
		Flashcards: []domain.Flashcard{
			{ID: "a", Front: "A", CreatedAt: t0},
			{ID: "b", Front: "B", CreatedAt: t0},
			{ID: "a", Front: "dup", CreatedAt: t0},
		},
		CardStatus: []domain.CardStatus{
			{CardID: "a", EaseFactor: 2.1, ReviewCount: 3},
			{CardID: "ghost", EaseFactor: 2.5},
		},
		ReviewHistory: []domain.ReviewEvent{
			{CardID: "a", Date: t0, Known: true},
			{CardID: "ghost", Date: t0 + 1},
		},
	}

	report := s.Restore(b, t0+7)
	assert.Equal(t, RestoreReport{Cards: 2, DuplicateCards: 1, MissingStatuses: 1, OrphanedStatuses: 1, OrphanedEvents: 1}, report)
	assert.True(t, report.Repaired())

	st, _ := s.Status("b")
	assert.Equal(t, initial("b", t0+7), st)
	st, _ = s.Status("a")
	assert.Equal(t, 3, st.ReviewCount)
	assert.Equal(t, []domain.ReviewEvent{{CardID: "a", Date: t0, Known: true}}, s.History())
}

func TestRestoreNormalizesStatuses(t *testing.T) {
	floor := func(st domain.CardStatus) domain.CardStatus {
		st.ReviewCount = max(st.ReviewCount, 0)
		st.EaseFactor = max(st.EaseFactor, 1.3)
		return st
	}
	s := newStore().WithNormalize(floor)
	b := domain.Bundle{
		Flashcards: []domain.Flashcard{{ID: "a", Front: "A"}, {ID: "b", Front: "B"}},
		CardStatus: []domain.CardStatus{
			{CardID: "a", EaseFactor: -7, ReviewCount: -3},
			{CardID: "b", EaseFactor: 2.0, ReviewCount: 4},
		},
	}

	report := s.Restore(b, t0)
	assert.Equal(t, 1, report.ClampedStatuses)
	assert.True(t, report.Repaired())

	st, _ := s.Status("a")
	assert.Equal(t, domain.CardStatus{CardID: "a", EaseFactor: 1.3}, st)
	st, _ = s.Status("b")
	assert.Equal(t, b.CardStatus[1], st)
}

func TestRestoreCleanBundle(t *testing.T) {
	s := newStore()
	c, _ := s.Add(domain.Content{Front: "Q", Back: "A"}, t0)
	require.NoError(t, s.ApplyReview(domain.ReviewEvent{CardID: c.ID, Date: t0 + 3}, domain.CardStatus{ReviewCount: 1}))
	b := domain.Bundle{Flashcards: s.Cards(), CardStatus: s.Statuses(), ReviewHistory: s.History()}

	other := newStore()
	report := other.Restore(b, t0+100)
	assert.False(t, report.Repaired())
	assert.Equal(t, b.Flashcards, other.Cards())
	assert.Equal(t, b.CardStatus, other.Statuses())
	assert.Equal(t, b.ReviewHistory, other.History())
}

func TestSampleDeckIsValid(t *testing.T) {
	s := newStore()
	for _, c := range SampleDeck() {
		_, err := s.Add(c, t0)
		require.NoError(t, err)
	}
	assert.Equal(t, len(SampleDeck()), s.Len())
}
