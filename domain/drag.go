package domain

// DragState is the in-flight drag-and-drop interaction of a board.
type DragState struct {
	TaskID       string `json:"taskId"`
	OverStatus   Status `json:"overStatus"`
	PreviewIndex int    `json:"previewIndex"`
}

// StartDrag begins dragging id. Any open move menu is closed.
func (b *Board) StartDrag(id string) bool {
	b.mu.Lock()
	if indexOfTask(b.tasks, id) < 0 {
		b.mu.Unlock()
		return false
	}
	b.drag = DragState{TaskID: id, PreviewIndex: -1}
	b.moveMenu = ""
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeView, TaskID: id})
	return true
}

// DragOver records the hovered lane and the preview index for a pointer at
// pointerY over the lane's rendered cards. The dragged card is ignored. It
// returns -1 when nothing is being dragged.
func (b *Board) DragOver(status Status, pointerY float64, cards []CardBox) int {
	b.mu.Lock()
	if b.drag.TaskID == "" {
		b.mu.Unlock()
		return -1
	}
	targets := make([]CardBox, 0, len(cards))
	for _, c := range cards {
		if c.TaskID != b.drag.TaskID {
			targets = append(targets, c)
		}
	}
	idx := DropIndex(pointerY, targets)
	b.drag.OverStatus = status
	b.drag.PreviewIndex = idx
	id := b.drag.TaskID
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeView, TaskID: id})
	return idx
}

// Drop moves the dragged task into status. The preview index is used when
// the pointer was last over that same lane, otherwise the task is appended.
// The drag state is cleared either way.
func (b *Board) Drop(status Status) bool {
	b.mu.Lock()
	d := b.drag
	b.drag = DragState{PreviewIndex: -1}
	if d.TaskID == "" {
		b.mu.Unlock()
		return false
	}
	idx := LaneCount(b.tasks, status)
	if d.OverStatus == status && d.PreviewIndex >= 0 {
		idx = d.PreviewIndex
	}
	next, ok := Move(b.tasks, d.TaskID, status, idx)
	if ok {
		b.tasks = next
	}
	b.mu.Unlock()
	if ok {
		b.emit(Change{Kind: ChangeTaskMoved, TaskID: d.TaskID})
	} else {
		b.emit(Change{Kind: ChangeView})
	}
	return ok
}

// EndDrag abandons the drag without moving anything.
func (b *Board) EndDrag() {
	b.mu.Lock()
	b.drag = DragState{PreviewIndex: -1}
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeView})
}

// Drag returns the current drag state.
func (b *Board) Drag() DragState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.drag
}
