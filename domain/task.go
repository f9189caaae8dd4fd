package domain

import "strings"

// Status is the board lane a task belongs to.
type Status string

const (
	StatusTodo          Status = "todo"
	StatusInProgress    Status = "in-progress"
	StatusAwaitFeedback Status = "await-feedback"
	StatusDone          Status = "done"
)

// StatusOrder lists the lanes left to right.
var StatusOrder = []Status{StatusTodo, StatusInProgress, StatusAwaitFeedback, StatusDone}

var statusLabels = map[Status]string{
	StatusTodo:          "To-do",
	StatusInProgress:    "In progress",
	StatusAwaitFeedback: "Review",
	StatusDone:          "Done",
}

// ParseStatus maps free-form status text onto a lane. Unknown values land in todo.
func ParseStatus(v string) Status {
	switch normalizeText(v) {
	case "in progress", "in-progress":
		return StatusInProgress
	case "await feedback", "await-feedback":
		return StatusAwaitFeedback
	case "done":
		return StatusDone
	default:
		return StatusTodo
	}
}

// Label is the short lane name shown in the move menu.
func (s Status) Label() string {
	return statusLabels[s]
}

func (s Status) position() int {
	for i, st := range StatusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Priority of a task.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority keeps urgent and low, everything else is medium.
func ParsePriority(v string) Priority {
	switch normalizeText(v) {
	case "urgent":
		return PriorityUrgent
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// DefaultCategory is used when a task has no category.
const DefaultCategory = "Technical Task"

type Subtask struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Task is a normalized board card.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     string    `json:"dueDate"`
	Priority    Priority  `json:"priority"`
	Category    string    `json:"category"`
	TeamMembers []string  `json:"teamMembers"`
	Subtasks    []Subtask `json:"subtasks"`
	Status      Status    `json:"status"`
	CreatedAt   int64     `json:"createdAt"`
}

// Clone returns a copy that shares no slices with t.
func (t Task) Clone() Task {
	out := t
	out.TeamMembers = append([]string{}, t.TeamMembers...)
	out.Subtasks = append([]Subtask{}, t.Subtasks...)
	return out
}

func cloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}

func normalizeText(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
