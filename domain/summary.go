package domain

import "strings"

// Summary aggregates board counters for the overview page.
type Summary struct {
	Lanes        map[Status]int `json:"lanes"`
	Total        int            `json:"total"`
	Urgent       int            `json:"urgent"`
	NextDeadline string         `json:"nextDeadline,omitempty"`
}

// Summarize counts tasks per lane and finds the earliest due date among
// unfinished urgent tasks.
func Summarize(tasks []Task) Summary {
	s := Summary{Lanes: make(map[Status]int, len(StatusOrder))}
	for _, st := range StatusOrder {
		s.Lanes[st] = 0
	}
	for i := range tasks {
		t := tasks[i]
		s.Lanes[t.Status]++
		s.Total++
		if t.Priority != PriorityUrgent {
			continue
		}
		s.Urgent++
		due := FormatDateForInput(t.DueDate)
		if t.Status == StatusDone || due == "" {
			continue
		}
		// ISO dates compare lexically.
		if s.NextDeadline == "" || strings.Compare(due, s.NextDeadline) < 0 {
			s.NextDeadline = due
		}
	}
	return s
}

// Summary summarizes the board.
func (b *Board) Summary() Summary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Summarize(b.tasks)
}
