package deck

import "github.com/conorfennell/knoldeck/internal/domain"

// SampleDeck is the starter deck used when nothing has been saved yet.
func SampleDeck() []domain.Content {
	return []domain.Content{
		{Front: "What is the largest planet in our solar system?", Back: "Jupiter"},
		{Front: "What is the chemical symbol for gold?", Back: "Au"},
		{Front: "Who wrote 'Pride and Prejudice'?", Back: "Jane Austen"},
		{Front: "In what year did the Berlin Wall fall?", Back: "1989"},
		{Front: "What organelle produces most of a cell's ATP?", Back: "The mitochondrion"},
		{Front: "What does a Go channel of type chan struct{} usually signal?", Back: "An event with no payload, such as completion or cancellation"},
		{Front: "What is the time complexity of binary search?", Back: "O(log n)"},
		{Front: "What does SQL stand for?", Back: "Structured Query Language"},
		{Front: "What is the speed of light in vacuum, approximately?", Back: "About 300,000 km/s"},
		{Front: "Which HTTP status code means 'Not Found'?", Back: "404"},
	}
}
