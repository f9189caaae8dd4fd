package domain

// LaneCount returns how many tasks in tasks have status.
func LaneCount(tasks []Task, status Status) int {
	n := 0
	for i := range tasks {
		if tasks[i].Status == status {
			n++
		}
	}
	return n
}

// laneInsertIndex translates a position inside a lane into an index in the
// full slice: right before the lane's laneIndex-th task, or the end of the
// slice when the lane has fewer tasks.
func laneInsertIndex(tasks []Task, status Status, laneIndex int) int {
	seen := 0
	for i := range tasks {
		if tasks[i].Status != status {
			continue
		}
		if seen == laneIndex {
			return i
		}
		seen++
	}
	return len(tasks)
}

// Move returns a new slice in which the task id has status and sits at
// laneIndex inside that lane. laneIndex is clamped to the lane bounds. The
// second result is false, and tasks is returned untouched, when id is unknown.
func Move(tasks []Task, id string, status Status, laneIndex int) ([]Task, bool) {
	from := indexOfTask(tasks, id)
	if from < 0 {
		return tasks, false
	}
	moved := tasks[from]
	rest := make([]Task, 0, len(tasks))
	rest = append(rest, tasks[:from]...)
	rest = append(rest, tasks[from+1:]...)

	moved.Status = status
	if limit := LaneCount(rest, status); laneIndex > limit {
		laneIndex = limit
	}
	if laneIndex < 0 {
		laneIndex = 0
	}
	at := laneInsertIndex(rest, status, laneIndex)

	out := make([]Task, 0, len(tasks))
	out = append(out, rest[:at]...)
	out = append(out, moved)
	out = append(out, rest[at:]...)
	return out, true
}

// CardBox is the rendered vertical extent of one card in a lane.
type CardBox struct {
	TaskID string  `json:"taskId"`
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// DropIndex is the lane position a pointer at pointerY would drop into: the
// first card whose vertical midpoint lies below the pointer, otherwise the end.
func DropIndex(pointerY float64, cards []CardBox) int {
	for i, c := range cards {
		if pointerY < c.Top+c.Height/2 {
			return i
		}
	}
	return len(cards)
}

// MoveTask moves a task to laneIndex inside status. It is a no-op returning
// false when the task does not exist.
func (b *Board) MoveTask(id string, status Status, laneIndex int) bool {
	b.mu.Lock()
	next, ok := Move(b.tasks, id, status, laneIndex)
	if ok {
		b.tasks = next
	}
	b.mu.Unlock()
	if ok {
		b.emit(Change{Kind: ChangeTaskMoved, TaskID: id})
	}
	return ok
}

// LaneCount returns the number of tasks currently in status.
func (b *Board) LaneCount(status Status) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return LaneCount(b.tasks, status)
}

// MoveToLaneEnd appends a task to the end of status and closes the move menu.
func (b *Board) MoveToLaneEnd(id string, status Status) bool {
	b.mu.Lock()
	next, ok := Move(b.tasks, id, status, LaneCount(b.tasks, status))
	if ok {
		b.tasks = next
		b.moveMenu = ""
	}
	b.mu.Unlock()
	if ok {
		b.emit(Change{Kind: ChangeTaskMoved, TaskID: id})
	}
	return ok
}

// ToggleMoveMenu opens the move menu for id, or closes it when it is already
// open for id. It returns the id the menu is open for afterwards.
func (b *Board) ToggleMoveMenu(id string) string {
	b.mu.Lock()
	if b.moveMenu == id {
		b.moveMenu = ""
	} else {
		b.moveMenu = id
	}
	open := b.moveMenu
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeView, TaskID: id})
	return open
}

// CloseMoveMenu closes any open move menu.
func (b *Board) CloseMoveMenu() {
	b.mu.Lock()
	b.moveMenu = ""
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeView})
}

// MoveMenuTaskID is the task whose move menu is open, or "".
func (b *Board) MoveMenuTaskID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.moveMenu
}

// MoveOption is one entry of the mobile move menu.
type MoveOption struct {
	Status Status `json:"status"`
	Label  string `json:"label"`
	Arrow  string `json:"arrow"`
}

// MoveMenuOptions lists every other lane in board order. The arrow points up
// for lanes left of the current one and down otherwise.
func MoveMenuOptions(current Status) []MoveOption {
	pos := current.position()
	out := make([]MoveOption, 0, len(StatusOrder)-1)
	for i, st := range StatusOrder {
		if st == current {
			continue
		}
		arrow := "↓"
		if i < pos {
			arrow = "↑"
		}
		out = append(out, MoveOption{Status: st, Label: st.Label(), Arrow: arrow})
	}
	return out
}

// MoveMenuOptions returns the menu entries for the task id.
func (b *Board) MoveMenuOptions(id string) ([]MoveOption, bool) {
	t, ok := b.FindByID(id)
	if !ok {
		return nil, false
	}
	return MoveMenuOptions(t.Status), true
}
