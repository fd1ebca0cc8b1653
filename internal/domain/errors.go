package domain

import "errors"

var (
	// ErrUnknownCard is returned when an operation references a card id that is not in the deck.
	ErrUnknownCard = errors.New("unknown card id")

	// ErrEmptyDeck is returned when a session command needs a current card but the deck is empty.
	ErrEmptyDeck = errors.New("deck is empty")

	// ErrNotRevealed is returned when a card is judged before its answer was shown.
	ErrNotRevealed = errors.New("answer not revealed")

	// ErrInvalidContent is returned when a card has no front text.
	ErrInvalidContent = errors.New("card front cannot be empty")
)
