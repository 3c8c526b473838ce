package model

// TaskID identifies one of the two classification tasks sharing the encoder.
type TaskID int

const (
	TaskTopic TaskID = iota
	TaskSentiment

	// NumTasks is the number of heads attached to the shared trunk.
	NumTasks = 2
)

// String returns the canonical task name used in logs, metrics, and
// checkpoint manifests.
func (t TaskID) String() string {
	switch t {
	case TaskTopic:
		return "topic"
	case TaskSentiment:
		return "sentiment"
	default:
		return "unknown"
	}
}

// TaskSpec describes one classification task: its name and ordered class
// labels. The label index is the class index used throughout training.
type TaskSpec struct {
	Name   string
	Labels []string
}

// NumClasses returns the number of classes for the task.
func (s TaskSpec) NumClasses() int {
	return len(s.Labels)
}

// DefaultTopicSpec returns the topic task over AG News-style categories.
func DefaultTopicSpec() TaskSpec {
	return TaskSpec{
		Name:   TaskTopic.String(),
		Labels: []string{"World", "Sports", "Business", "SciTech"},
	}
}

// DefaultSentimentSpec returns the binary sentiment task.
func DefaultSentimentSpec() TaskSpec {
	return TaskSpec{
		Name:   TaskSentiment.String(),
		Labels: []string{"negative", "positive"},
	}
}
