package api

import "join-board/domain"

type memberView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Initials string `json:"initials"`
	Color    string `json:"color"`
}

type cardView struct {
	domain.Task
	DisplayDueDate string              `json:"displayDueDate"`
	Progress       domain.Progress     `json:"progress"`
	Members        []memberView        `json:"members"`
	MoveOptions    []domain.MoveOption `json:"moveOptions,omitempty"`
	Dragging       bool                `json:"dragging,omitempty"`
}

type laneView struct {
	Status       domain.Status `json:"status"`
	Label        string        `json:"label"`
	Total        int           `json:"total"`
	Cards        []cardView    `json:"cards"`
	PreviewIndex int           `json:"previewIndex"`
}

type boardView struct {
	Search   string           `json:"search"`
	Lanes    []laneView       `json:"lanes"`
	Drag     domain.DragState `json:"drag"`
	MoveMenu string           `json:"moveMenu,omitempty"`
}

func newCardView(t domain.Task, contacts map[string]domain.Contact, menuOpen bool, dragging string) cardView {
	members := make([]memberView, 0, len(t.TeamMembers))
	for _, id := range t.TeamMembers {
		c, ok := contacts[id]
		if !ok {
			continue
		}
		members = append(members, memberView{
			ID:       c.ID,
			Name:     c.Name,
			Initials: domain.Initials(c.Name),
			Color:    c.Color,
		})
	}
	v := cardView{
		Task:           t,
		DisplayDueDate: domain.FormatDateForDisplay(t.DueDate),
		Progress:       domain.SubtaskProgress(t.Subtasks),
		Members:        members,
		Dragging:       dragging != "" && dragging == t.ID,
	}
	if menuOpen {
		v.MoveOptions = domain.MoveMenuOptions(t.Status)
	}
	return v
}

func contactIndex(contacts []domain.Contact) map[string]domain.Contact {
	out := make(map[string]domain.Contact, len(contacts))
	for _, c := range contacts {
		out[c.ID] = c
	}
	return out
}

// buildBoardView renders every lane filtered by query.
func buildBoardView(b *domain.Board, query string) boardView {
	contacts := contactIndex(b.Contacts())
	drag := b.Drag()
	menu := b.MoveMenuTaskID()

	lanes := b.Lanes(query)
	view := boardView{
		Search:   query,
		Lanes:    make([]laneView, 0, len(lanes)),
		Drag:     drag,
		MoveMenu: menu,
	}
	for _, l := range lanes {
		lv := laneView{
			Status:       l.Status,
			Label:        l.Label,
			Total:        l.Total,
			Cards:        make([]cardView, 0, len(l.Tasks)),
			PreviewIndex: -1,
		}
		if drag.TaskID != "" && drag.OverStatus == l.Status {
			lv.PreviewIndex = drag.PreviewIndex
		}
		for _, t := range l.Tasks {
			lv.Cards = append(lv.Cards, newCardView(t, contacts, menu == t.ID, drag.TaskID))
		}
		view.Lanes = append(view.Lanes, lv)
	}
	return view
}

func visibleCount(v boardView) int {
	n := 0
	for _, l := range v.Lanes {
		n += len(l.Cards)
	}
	return n
}
