// Package stats folds review events into aggregate counters.
package stats

import (
	"math"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

const dateKeyLayout = "2006-01-02"

// Mastery thresholds for a single card.
const (
	MasteryMinReviews  = 5
	MasteryMinAccuracy = 80
)

// DateKey returns the calendar day of ts in loc as YYYY-MM-DD.
func DateKey(ts domain.Timestamp, loc *time.Location) string {
	return ts.Time(loc).Format(dateKeyLayout)
}

// Aggregator maintains Stats incrementally as reviews are recorded.
type Aggregator struct {
	stats domain.Stats
	loc   *time.Location
}

// New returns an empty aggregator bucketing days in loc.
func New(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{stats: domain.NewStats(), loc: loc}
}

// Location is the time zone used for date keys.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// Record folds one review event into the counters.
func (a *Aggregator) Record(e domain.ReviewEvent) {
	add(&a.stats, e, a.loc)
}

// Stats returns a copy of the current counters.
func (a *Aggregator) Stats() domain.Stats {
	return a.stats.Clone()
}

// Rebuild discards the counters and replays history.
func (a *Aggregator) Rebuild(history []domain.ReviewEvent) {
	a.stats = Replay(history, a.loc)
}

// Restore installs previously saved counters. When they disagree with the fold
// of history the counters are rebuilt and Restore returns true.
func (a *Aggregator) Restore(saved domain.Stats, history []domain.ReviewEvent) bool {
	replayed := Replay(history, a.loc)
	if Equal(saved, replayed) {
		a.stats = saved.Clone()
		return false
	}
	a.stats = replayed
	return true
}

// Replay computes Stats from scratch.
func Replay(history []domain.ReviewEvent, loc *time.Location) domain.Stats {
	s := domain.NewStats()
	for _, e := range history {
		add(&s, e, loc)
	}
	return s
}

// Equal compares two Stats, treating a nil date map as empty.
func Equal(a, b domain.Stats) bool {
	if a.TotalReviews != b.TotalReviews || a.KnownCount != b.KnownCount || a.UnknownCount != b.UnknownCount {
		return false
	}
	if len(a.ReviewsByDate) != len(b.ReviewsByDate) {
		return false
	}
	for k, v := range a.ReviewsByDate {
		if w, ok := b.ReviewsByDate[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func add(s *domain.Stats, e domain.ReviewEvent, loc *time.Location) {
	if s.ReviewsByDate == nil {
		s.ReviewsByDate = map[string]domain.DayStats{}
	}
	key := DateKey(e.Date, loc)
	day := s.ReviewsByDate[key]
	s.TotalReviews++
	if e.Known {
		s.KnownCount++
		day.Known++
	} else {
		s.UnknownCount++
		day.Unknown++
	}
	s.ReviewsByDate[key] = day
}

// Accuracy is the rounded percentage of known outcomes, 0 when total is 0.
func Accuracy(known, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(known) * 100 / float64(total)))
}

// Accuracy returns the overall known percentage.
func (a *Aggregator) Accuracy() int {
	return Accuracy(a.stats.KnownCount, a.stats.TotalReviews)
}

// ReviewedOn returns the outcomes recorded on the day containing ts.
func (a *Aggregator) ReviewedOn(ts domain.Timestamp) domain.DayStats {
	return a.stats.ReviewsByDate[DateKey(ts, a.loc)]
}

// Day is one entry of a daily series.
type Day struct {
	Date    string `json:"date"`
	Known   int    `json:"known"`
	Unknown int    `json:"unknown"`
}

// LastNDays returns the n calendar days ending on the day of now, oldest first.
// Days without reviews are zero.
func (a *Aggregator) LastNDays(n int, now domain.Timestamp) []Day {
	if n <= 0 {
		return nil
	}
	today := now.Time(a.loc)
	out := make([]Day, n)
	for i := 0; i < n; i++ {
		key := today.AddDate(0, 0, i-n+1).Format(dateKeyLayout)
		d := a.stats.ReviewsByDate[key]
		out[i] = Day{Date: key, Known: d.Known, Unknown: d.Unknown}
	}
	return out
}

// Performance summarizes the reviews of one card.
type Performance struct {
	Total    int `json:"total"`
	Correct  int `json:"correct"`
	Accuracy int `json:"accuracy"`
}

// Mastered reports whether the card has enough reviews at a high enough accuracy.
func (p Performance) Mastered() bool {
	return p.Total >= MasteryMinReviews && p.Correct*100 >= MasteryMinAccuracy*p.Total
}

// PerformanceOf folds the events of one card.
func PerformanceOf(history []domain.ReviewEvent, cardID string) Performance {
	var p Performance
	for _, e := range history {
		if e.CardID != cardID {
			continue
		}
		p.Total++
		if e.Known {
			p.Correct++
		}
	}
	p.Accuracy = Accuracy(p.Correct, p.Total)
	return p
}

// MasteredCount counts the cards in ids that are mastered.
func MasteredCount(history []domain.ReviewEvent, ids []string) int {
	per := make(map[string]*Performance, len(ids))
	for _, id := range ids {
		per[id] = &Performance{}
	}
	for _, e := range history {
		p, ok := per[e.CardID]
		if !ok {
			continue
		}
		p.Total++
		if e.Known {
			p.Correct++
		}
	}
	n := 0
	for _, p := range per {
		if p.Mastered() {
			n++
		}
	}
	return n
}
