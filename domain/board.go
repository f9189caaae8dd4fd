package domain

import (
	"strconv"
	"strings"
	"sync"
)

// ChangeKind names what happened to the board.
type ChangeKind string

const (
	ChangeLoaded          ChangeKind = "board.loaded"
	ChangeTaskCreated     ChangeKind = "task.created"
	ChangeTaskUpdated     ChangeKind = "task.updated"
	ChangeTaskDeleted     ChangeKind = "task.deleted"
	ChangeTaskMoved       ChangeKind = "task.moved"
	ChangeContactsUpdated ChangeKind = "contacts.updated"
	// ChangeView covers transient state such as search text, drag preview
	// and menus. Nothing needs to be persisted for it.
	ChangeView ChangeKind = "board.view"
)

// Change is delivered to board observers after a mutation has been applied.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	TaskID string     `json:"taskId,omitempty"`
}

// SavesTasks reports whether the task collection changed.
func (c Change) SavesTasks() bool {
	switch c.Kind {
	case ChangeTaskCreated, ChangeTaskUpdated, ChangeTaskDeleted, ChangeTaskMoved, ChangeContactsUpdated:
		return true
	}
	return false
}

// SavesContacts reports whether the contact collection changed.
func (c Change) SavesContacts() bool {
	return c.Kind == ChangeContactsUpdated
}

// Board holds one session's tasks, contacts and interaction state. The order
// of tasks within a lane is their relative order in the single task slice.
type Board struct {
	mu         sync.RWMutex
	normalizer *Normalizer
	tasks      []Task
	contacts   []Contact
	loaded     bool

	search    string
	drag      DragState
	moveMenu  string
	addTarget Status
	editID    string

	lmu       sync.Mutex
	listeners map[int]func(Change)
	nextID    int
}

// NewBoard creates an empty board. A nil normalizer uses the default one.
func NewBoard(n *Normalizer) *Board {
	if n == nil {
		n = defaultNormalizer
	}
	return &Board{
		normalizer: n,
		drag:       DragState{PreviewIndex: -1},
		addTarget:  StatusTodo,
		listeners:  make(map[int]func(Change)),
	}
}

// Normalizer returns the normalizer used by the board.
func (b *Board) Normalizer() *Normalizer {
	return b.normalizer
}

// Subscribe registers fn for every change. The returned func removes it.
// Observers run after the board lock is released and may read the board.
func (b *Board) Subscribe(fn func(Change)) func() {
	b.lmu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.lmu.Unlock()
	return func() {
		b.lmu.Lock()
		delete(b.listeners, id)
		b.lmu.Unlock()
	}
}

func (b *Board) emit(c Change) {
	b.lmu.Lock()
	fns := make([]func(Change), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.lmu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// Replace swaps in a full task and contact collection, for example after a load.
func (b *Board) Replace(tasks []Task, contacts []Contact) {
	b.mu.Lock()
	b.tasks = cloneTasks(tasks)
	b.contacts = cloneContacts(contacts)
	b.loaded = true
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeLoaded})
}

// Loaded reports whether the board has been populated from storage.
func (b *Board) Loaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded
}

// Tasks returns a copy of all tasks in board order.
func (b *Board) Tasks() []Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneTasks(b.tasks)
}

// Contacts returns a copy of all contacts.
func (b *Board) Contacts() []Contact {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneContacts(b.contacts)
}

// FindByID returns the task with the given id.
func (b *Board) FindByID(id string) (Task, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if i := indexOfTask(b.tasks, id); i >= 0 {
		return b.tasks[i].Clone(), true
	}
	return Task{}, false
}

// FindContact returns the contact with the given id.
func (b *Board) FindContact(id string) (Contact, bool) {
	if id == "" {
		return Contact{}, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.contacts {
		if c.ID == id {
			return c, true
		}
	}
	return Contact{}, false
}

// Add normalizes raw and appends it to the end of its lane. The id is always
// assigned here; an id in raw is ignored. A record without a status goes to
// the lane the add-task overlay was opened for.
func (b *Board) Add(raw any) (Task, bool) {
	t, ok := b.normalizer.Normalize(raw)
	if !ok {
		return Task{}, false
	}
	id := b.normalizer.NewTaskID()
	b.mu.Lock()
	if !hasStatus(raw) {
		t.Status = b.addTarget
	}
	t.ID = id
	for n := 2; indexOfTask(b.tasks, t.ID) >= 0; n++ {
		t.ID = id + "_" + strconv.Itoa(n)
	}
	b.tasks = append(b.tasks, t)
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeTaskCreated, TaskID: t.ID})
	return t.Clone(), true
}

// Update replaces the fields of the task with the given id in place. Board
// position, status, id and creation time are kept from the existing task;
// status and order only change through the move operations.
func (b *Board) Update(id string, raw any) (Task, bool) {
	t, ok := b.normalizer.Normalize(raw)
	if !ok {
		return Task{}, false
	}
	b.mu.Lock()
	i := indexOfTask(b.tasks, id)
	if i < 0 {
		b.mu.Unlock()
		return Task{}, false
	}
	t.Status = b.tasks[i].Status
	t.ID = b.tasks[i].ID
	t.CreatedAt = b.tasks[i].CreatedAt
	b.tasks[i] = t
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeTaskUpdated, TaskID: id})
	return t.Clone(), true
}

// Delete removes the task. Menus and overlays pointing at it are closed.
func (b *Board) Delete(id string) bool {
	b.mu.Lock()
	i := indexOfTask(b.tasks, id)
	if i < 0 {
		b.mu.Unlock()
		return false
	}
	b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
	if b.moveMenu == id {
		b.moveMenu = ""
	}
	if b.editID == id {
		b.editID = ""
	}
	if b.drag.TaskID == id {
		b.drag = DragState{PreviewIndex: -1}
	}
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeTaskDeleted, TaskID: id})
	return true
}

// ToggleSubtask flips the done flag of one subtask.
func (b *Board) ToggleSubtask(taskID, subtaskID string) (Task, bool) {
	b.mu.Lock()
	i := indexOfTask(b.tasks, taskID)
	if i < 0 {
		b.mu.Unlock()
		return Task{}, false
	}
	t := b.tasks[i].Clone()
	found := false
	for j := range t.Subtasks {
		if t.Subtasks[j].ID == subtaskID {
			t.Subtasks[j].Done = !t.Subtasks[j].Done
			found = true
		}
	}
	if !found {
		b.mu.Unlock()
		return Task{}, false
	}
	b.tasks[i] = t
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeTaskUpdated, TaskID: taskID})
	return t.Clone(), true
}

// RemoveContact deletes a contact and strips it from every task's team.
func (b *Board) RemoveContact(contactID string) bool {
	b.mu.Lock()
	removed := false
	kept := b.contacts[:0]
	for _, c := range b.contacts {
		if c.ID == contactID {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	b.contacts = kept
	for i := range b.tasks {
		members := b.tasks[i].TeamMembers
		filtered := make([]string, 0, len(members))
		for _, m := range members {
			if m == contactID {
				removed = true
				continue
			}
			filtered = append(filtered, m)
		}
		b.tasks[i].TeamMembers = filtered
	}
	b.mu.Unlock()
	if removed {
		b.emit(Change{Kind: ChangeContactsUpdated})
	}
	return removed
}

// OpenAddTask prepares the overlay to create a task in status.
func (b *Board) OpenAddTask(status Status) {
	b.mu.Lock()
	b.editID = ""
	b.addTarget = status
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeView})
}

// StartEdit prepares the overlay to edit an existing task.
func (b *Board) StartEdit(id string) bool {
	b.mu.Lock()
	i := indexOfTask(b.tasks, id)
	if i < 0 {
		b.mu.Unlock()
		return false
	}
	b.editID = id
	b.addTarget = b.tasks[i].Status
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeView, TaskID: id})
	return true
}

// Overlay returns the add-task overlay target lane and the id being edited.
func (b *Board) Overlay() (Status, string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.addTarget, b.editID
}

// SubmitOverlay applies raw as a create or an edit, depending on how the
// overlay was opened. A create lands in the overlay's target status; an edit
// keeps whatever status the task has now. The overlay is reset afterwards.
func (b *Board) SubmitOverlay(raw any) (Task, bool) {
	rec, ok := asRecord(raw)
	if !ok {
		return Task{}, false
	}
	b.mu.Lock()
	target, editID := b.addTarget, b.editID
	b.addTarget, b.editID = StatusTodo, ""
	b.mu.Unlock()

	if editID != "" {
		return b.Update(editID, rec)
	}
	payload := make(map[string]any, len(rec)+1)
	for k, v := range rec {
		payload[k] = v
	}
	payload["status"] = string(target)
	return b.Add(payload)
}

// CloseOverlay resets the overlay without applying anything.
func (b *Board) CloseOverlay() {
	b.mu.Lock()
	b.addTarget, b.editID = StatusTodo, ""
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeView})
}

func indexOfTask(tasks []Task, id string) int {
	if id == "" {
		return -1
	}
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func hasStatus(raw any) bool {
	rec, ok := raw.(map[string]any)
	if !ok {
		return true
	}
	return strings.TrimSpace(coerceString(rec["status"])) != ""
}
