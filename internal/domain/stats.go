package domain

// DayStats counts the outcomes recorded on one calendar day.
type DayStats struct {
	Known   int `json:"known"`
	Unknown int `json:"unknown"`
}

// Total is the number of reviews recorded on the day.
func (d DayStats) Total() int {
	return d.Known + d.Unknown
}

// Stats holds the aggregate review counters.
// ReviewsByDate is keyed by YYYY-MM-DD.
type Stats struct {
	TotalReviews  int                 `json:"totalReviews"`
	KnownCount    int                 `json:"knownCount"`
	UnknownCount  int                 `json:"unknownCount"`
	ReviewsByDate map[string]DayStats `json:"reviewsByDate"`
}

// NewStats returns zeroed counters with an empty date map.
func NewStats() Stats {
	return Stats{ReviewsByDate: map[string]DayStats{}}
}

// Clone returns a deep copy of s.
func (s Stats) Clone() Stats {
	out := s
	out.ReviewsByDate = make(map[string]DayStats, len(s.ReviewsByDate))
	for k, v := range s.ReviewsByDate {
		out.ReviewsByDate[k] = v
	}
	return out
}

// Bundle is everything that is persisted between runs.
type Bundle struct {
	Flashcards    []Flashcard   `json:"flashcards"`
	CardStatus    []CardStatus  `json:"cardStatus"`
	ReviewHistory []ReviewEvent `json:"reviewHistory"`
	Stats         Stats         `json:"stats"`
}
