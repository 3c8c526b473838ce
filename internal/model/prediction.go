package model

// TaskResult is the outcome of one head for one input text.
type TaskResult struct {
	Task       string  `json:"task"`
	Label      string  `json:"label"`
	Class      int     `json:"class"`
	Confidence float64 `json:"confidence"`
}

// Prediction holds the per-task results for one input text, ordered as the
// tasks appear in the checkpoint manifest (topic first, then sentiment).
type Prediction struct {
	Text    string       `json:"text"`
	Results []TaskResult `json:"results"`
}
