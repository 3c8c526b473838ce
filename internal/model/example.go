package model

// Example is a single labeled training or evaluation row.
// Label must be a valid class index for its task; the dataset filter
// enforces this before examples reach the trainer.
type Example struct {
	Text  string
	Label int
}
