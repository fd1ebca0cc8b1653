package domain

import "time"

// Timestamp is a point in time in Unix milliseconds.
type Timestamp int64

// FromTime converts t to a millisecond Timestamp, truncating sub-millisecond precision.
func FromTime(t time.Time) Timestamp {
	return Timestamp(t.UnixMilli())
}

// Time returns the timestamp as a time.Time in loc (UTC when loc is nil).
func (ts Timestamp) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(int64(ts)).In(loc)
}

// Content is the editable text of a card.
type Content struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// Flashcard is a single question/answer card in the deck.
type Flashcard struct {
	ID           string     `json:"id"`
	Front        string     `json:"front"`
	Back         string     `json:"back"`
	CreatedAt    Timestamp  `json:"createdAt"`
	LastReviewed *Timestamp `json:"lastReviewed,omitempty"`
}

// Content returns the card's front and back text.
func (c Flashcard) Content() Content {
	return Content{Front: c.Front, Back: c.Back}
}

// CardStatus is the scheduling state of one card.
type CardStatus struct {
	CardID             string    `json:"cardId"`
	Known              bool      `json:"known"`
	DueDate            Timestamp `json:"dueDate"`
	EaseFactor         float64   `json:"easeFactor"`
	ReviewCount        int       `json:"reviewCount"`
	ConsecutiveCorrect int       `json:"consecutiveCorrect"`
}

// IsDue reports whether the card is eligible for review at now.
func (s CardStatus) IsDue(now Timestamp) bool {
	return s.DueDate <= now
}

// ReviewEvent records a single judged outcome.
// Events are append-only and kept in chronological order.
type ReviewEvent struct {
	CardID string    `json:"cardId"`
	Date   Timestamp `json:"date"`
	Known  bool      `json:"known"`
}
