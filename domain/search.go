package domain

import "strings"

// VisibleTasks returns the tasks of one lane, in board order, whose title or
// description contains query. Matching is case-insensitive and ignores
// surrounding whitespace; an empty query shows the whole lane.
func VisibleTasks(tasks []Task, status Status, query string) []Task {
	q := normalizeText(query)
	out := make([]Task, 0)
	for i := range tasks {
		t := tasks[i]
		if t.Status != status {
			continue
		}
		if q != "" && !matches(t, q) {
			continue
		}
		out = append(out, t.Clone())
	}
	return out
}

func matches(t Task, q string) bool {
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}

// Lane is one board column as currently visible.
type Lane struct {
	Status Status `json:"status"`
	Label  string `json:"label"`
	Total  int    `json:"total"`
	Tasks  []Task `json:"tasks"`
}

// SetSearch stores the board's search text.
func (b *Board) SetSearch(q string) {
	b.mu.Lock()
	b.search = q
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeView})
}

// Search returns the stored search text.
func (b *Board) Search() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.search
}

// Visible filters one lane with query.
func (b *Board) Visible(status Status, query string) []Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return VisibleTasks(b.tasks, status, query)
}

// Lanes returns all lanes in board order filtered by query.
func (b *Board) Lanes(query string) []Lane {
	b.mu.RLock()
	defer b.mu.RUnlock()
	lanes := make([]Lane, 0, len(StatusOrder))
	for _, st := range StatusOrder {
		lanes = append(lanes, Lane{
			Status: st,
			Label:  st.Label(),
			Total:  LaneCount(b.tasks, st),
			Tasks:  VisibleTasks(b.tasks, st, query),
		})
	}
	return lanes
}
