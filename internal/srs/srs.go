package srs

import (
	"fmt"
	"math"

	"github.com/conorfennell/knoldeck/internal/domain"
)

const msPerDay = 24 * 60 * 60 * 1000

// Params holds the tunables of the SM-2 style scheduler.
type Params struct {
	// MinEaseFactor is at least 1 so no known-branch interval is shorter than a day.
	MinEaseFactor     float64 `koanf:"min_ease_factor" validate:"gte=1"`
	MaxEaseFactor     float64 `koanf:"max_ease_factor" validate:"gtefield=MinEaseFactor"`
	InitialEaseFactor float64 `koanf:"initial_ease_factor" validate:"gtefield=MinEaseFactor,ltefield=MaxEaseFactor"`
	EaseBonus         float64 `koanf:"ease_bonus" validate:"gte=0"`
	EasePenalty       float64 `koanf:"ease_penalty" validate:"gte=0"`
	// IncorrectInterval is how long a failed card waits, in days. It stays
	// under one day so a failed card is due before any known one.
	IncorrectInterval float64 `koanf:"incorrect_interval_days" validate:"gt=0,lt=1"`
	// MaximumInterval caps the known-branch interval, in days.
	MaximumInterval float64 `koanf:"maximum_interval_days" validate:"gtefield=IncorrectInterval"`
}

// DefaultParams provides the stock values.
func DefaultParams() Params {
	return Params{
		MinEaseFactor:     1.3,
		MaxEaseFactor:     2.5,
		InitialEaseFactor: 2.5,
		EaseBonus:         0.1,
		EasePenalty:       0.2,
		IncorrectInterval: 0.00069, // about one minute
		MaximumInterval:   36500,
	}
}

// Scheduler computes the next CardStatus from a review outcome.
// It holds no state besides its parameters and is safe for concurrent use.
type Scheduler struct {
	params Params
}

// NewScheduler checks p and returns a Scheduler using it.
func NewScheduler(p Params) (*Scheduler, error) {
	if p.MinEaseFactor < 1 || p.MaxEaseFactor < p.MinEaseFactor {
		return nil, fmt.Errorf("srs: ease factor range [%g, %g] is invalid", p.MinEaseFactor, p.MaxEaseFactor)
	}
	if p.IncorrectInterval >= 1 {
		return nil, fmt.Errorf("srs: incorrect interval %g must be under one day", p.IncorrectInterval)
	}
	if p.IncorrectInterval <= 0 || p.MaximumInterval < p.IncorrectInterval {
		return nil, fmt.Errorf("srs: interval range [%g, %g] is invalid", p.IncorrectInterval, p.MaximumInterval)
	}
	return &Scheduler{params: p}, nil
}

// Params returns the parameters the scheduler was built with.
func (s *Scheduler) Params() Params {
	return s.params
}

// InitialStatus is the status given to a card that has never been reviewed.
func (s *Scheduler) InitialStatus(cardID string, now domain.Timestamp) domain.CardStatus {
	return domain.CardStatus{
		CardID:     cardID,
		DueDate:    now,
		EaseFactor: s.params.InitialEaseFactor,
	}
}

// NextStatus applies one review outcome to status. It does not modify its input.
//
// The known-branch interval is taken from the review count and ease factor as
// they were before this review, and from the streak including this review.
func (s *Scheduler) NextStatus(status domain.CardStatus, known bool, now domain.Timestamp) domain.CardStatus {
	p := s.params
	// The incoming ease is normalized into range before it feeds the interval
	// or the update, so 3.0 on a failed review becomes 2.5-0.2.
	ease := s.clampEase(status.EaseFactor)
	next := status
	next.Known = known
	next.ReviewCount = status.ReviewCount + 1

	var intervalDays float64
	if known {
		next.ConsecutiveCorrect = status.ConsecutiveCorrect + 1
		intervalDays = math.Min(interval(status.ReviewCount, next.ConsecutiveCorrect, ease), p.MaximumInterval)
		next.EaseFactor = s.clampEase(ease + p.EaseBonus)
	} else {
		next.ConsecutiveCorrect = 0
		intervalDays = p.IncorrectInterval
		next.EaseFactor = s.clampEase(ease - p.EasePenalty)
	}

	next.DueDate = now + domain.Timestamp(math.Floor(intervalDays*msPerDay))
	return next
}

// Normalize brings a stored status back into range: counters are
// non-negative, the streak never exceeds the review count and the ease
// factor lies within the configured bounds.
func (s *Scheduler) Normalize(status domain.CardStatus) domain.CardStatus {
	status.ReviewCount = max(status.ReviewCount, 0)
	status.ConsecutiveCorrect = min(max(status.ConsecutiveCorrect, 0), status.ReviewCount)
	status.EaseFactor = s.clampEase(status.EaseFactor)
	return status
}

func (s *Scheduler) clampEase(ef float64) float64 {
	return math.Max(s.params.MinEaseFactor, math.Min(ef, s.params.MaxEaseFactor))
}

// interval returns the known-branch interval in days.
func interval(reviewCount, streak int, ease float64) float64 {
	switch {
	case reviewCount <= 1:
		return 1
	case reviewCount == 2:
		return 3
	}
	return float64(lastInterval(reviewCount, streak)) * ease
}

// lastInterval is the Fibonacci-like step table indexed by streak,
// growing linearly past a streak of five.
func lastInterval(reviewCount, streak int) int {
	if reviewCount <= 2 {
		return 1
	}
	switch {
	case streak <= 1:
		return 1
	case streak == 2:
		return 3
	case streak == 3:
		return 5
	case streak == 4:
		return 8
	case streak == 5:
		return 13
	}
	return 21 * (streak - 5)
}
