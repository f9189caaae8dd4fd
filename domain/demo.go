package domain

import "time"

type demoTask struct {
	task    Task
	offset  time.Duration
	members []string
}

// DemoContacts are the people the demo board assigns tasks to.
func DemoContacts() []Contact {
	return []Contact{
		{ID: "c_demo_sofia", Name: "Sofia Müller", Email: "sofia@mail.com", Phone: "+49 1000 0000", Color: "#29ABE2"},
		{ID: "c_demo_benedikt", Name: "Benedikt Ziegler", Email: "benedikt@mail.com", Phone: "+49 1000 0001", Color: "#6E52FF"},
		{ID: "c_demo_emmanuel", Name: "Emmanuel Mauer", Email: "emmanuel@mail.com", Phone: "+49 1000 0002", Color: "#1FD7C1"},
		{ID: "c_demo_marcel", Name: "Marcel Bauer", Email: "marcel@mail.com", Phone: "+49 1000 0003", Color: "#462F8A"},
		{ID: "c_demo_anton", Name: "Anton Mayer", Email: "anton@mail.com", Phone: "+49 1000 0004", Color: "#FF7A00"},
	}
}

var (
	kochweltTeam = []string{"Anton Mayer", "Emmanuel Mauer", "Marcel Bauer"}

	demoTasks = []demoTask{
		{
			task: Task{
				ID:          "t_demo_kochwelt",
				Title:       "Kochwelt Page & Recipe Recommender",
				Description: "Build start page with recipe recommendation...",
				DueDate:     "2026-05-10",
				Priority:    PriorityMedium,
				Category:    "User Story",
				Status:      StatusInProgress,
				Subtasks: []Subtask{
					{ID: "s_demo_1", Text: "Implement Recipe Recommendation", Done: true},
					{ID: "s_demo_2", Text: "Start Page Layout"},
				},
			},
			offset:  40 * time.Second,
			members: kochweltTeam,
		},
		{
			task: Task{
				ID:          "t_demo_template",
				Title:       "HTML Base Template Creation",
				Description: "Create reusable HTML base template...",
				DueDate:     "2026-09-02",
				Priority:    PriorityLow,
				Category:    "Technical Task",
				Status:      StatusAwaitFeedback,
			},
			offset:  30 * time.Second,
			members: kochweltTeam,
		},
		{
			task: Task{
				ID:          "t_demo_daily",
				Title:       "Daily Kochwelt Recipe",
				Description: "Implement daily recipe and portion calculator...",
				DueDate:     "2026-06-12",
				Priority:    PriorityMedium,
				Category:    "User Story",
				Status:      StatusAwaitFeedback,
			},
			offset:  20 * time.Second,
			members: kochweltTeam,
		},
		{
			task: Task{
				ID:          "t_demo_css",
				Title:       "CSS Architecture Planning",
				Description: "Define CSS naming conventions and structure...",
				DueDate:     "2026-09-02",
				Priority:    PriorityUrgent,
				Category:    "Technical Task",
				Status:      StatusDone,
				Subtasks: []Subtask{
					{ID: "s_demo_3", Text: "Establish CSS Methodology", Done: true},
					{ID: "s_demo_4", Text: "Setup Base Styles", Done: true},
				},
			},
			offset:  10 * time.Second,
			members: []string{"Sofia Müller", "Benedikt Ziegler"},
		},
		{
			task: Task{
				ID:          "t_demo_api",
				Title:       "API Integration for Contacts",
				Description: "Connect contacts data flow with storage adapter and fallback handling.",
				DueDate:     "2026-10-14",
				Priority:    PriorityMedium,
				Category:    "Technical Task",
				Status:      StatusTodo,
				Subtasks: []Subtask{
					{ID: "s_demo_5", Text: "Map storage response to UI model"},
				},
			},
			offset:  5 * time.Second,
			members: []string{"Sofia Müller", "Anton Mayer"},
		},
	}
)

// EnsureDemoContacts appends every demo contact whose name is not present
// yet. The boolean reports whether anything was added.
func EnsureDemoContacts(contacts []Contact) ([]Contact, bool) {
	out := cloneContacts(contacts)
	added := false
	for _, demo := range DemoContacts() {
		if contactIDByName(out, demo.Name) != "" {
			continue
		}
		out = append(out, demo)
		added = true
	}
	return out, added
}

// DemoTasks builds the demo tasks, resolving team members by contact name.
// Members whose contact cannot be found are left out.
func DemoTasks(contacts []Contact, now time.Time) []Task {
	out := make([]Task, 0, len(demoTasks))
	for _, d := range demoTasks {
		t := d.task.Clone()
		t.CreatedAt = now.Add(-d.offset).UnixMilli()
		t.TeamMembers = make([]string, 0, len(d.members))
		for _, name := range d.members {
			if id := contactIDByName(contacts, name); id != "" {
				t.TeamMembers = append(t.TeamMembers, id)
			}
		}
		out = append(out, t)
	}
	return out
}

// SeedIfEmpty fills an empty board with the demo data. When tasks is not
// empty everything is returned unchanged. seeded reports whether demo tasks
// were produced; contactsChanged whether demo contacts had to be added.
func SeedIfEmpty(contacts []Contact, tasks []Task, now time.Time) (outContacts []Contact, outTasks []Task, seeded, contactsChanged bool) {
	if len(tasks) > 0 {
		return contacts, tasks, false, false
	}
	outContacts, contactsChanged = EnsureDemoContacts(contacts)
	return outContacts, DemoTasks(outContacts, now), true, contactsChanged
}

func contactIDByName(contacts []Contact, name string) string {
	key := NormalizeName(name)
	for _, c := range contacts {
		if NormalizeName(c.Name) == key {
			return c.ID
		}
	}
	return ""
}
