package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stored records come in two shapes. Records written before team members were
// introduced carry an "assignees" list; current records carry "teamMembers".
const (
	schemaLegacy  = 0
	schemaCurrent = 1
)

// Normalizer turns loosely shaped storage records into well-formed tasks and
// contacts. Now and Suffix are injectable so output is reproducible in tests.
type Normalizer struct {
	Now    func() time.Time
	Suffix func() string
}

// NewNormalizer returns a Normalizer backed by the wall clock and uuid suffixes.
func NewNormalizer() *Normalizer {
	return &Normalizer{Now: time.Now, Suffix: randomSuffix}
}

var defaultNormalizer = NewNormalizer()

// Normalize normalizes raw with the default normalizer.
func Normalize(raw any) (Task, bool) {
	return defaultNormalizer.Normalize(raw)
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

func (n *Normalizer) now() time.Time {
	if n == nil || n.Now == nil {
		return time.Now()
	}
	return n.Now()
}

func (n *Normalizer) suffix() string {
	if n == nil || n.Suffix == nil {
		return randomSuffix()
	}
	return n.Suffix()
}

func base36Millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 36)
}

// NewTaskID returns an id of the form t_<base36 millis>_<suffix>.
func (n *Normalizer) NewTaskID() string {
	return "t_" + base36Millis(n.now()) + "_" + n.suffix()
}

// NewContactID returns an id of the form c_<base36 millis>_<suffix>.
func (n *Normalizer) NewContactID() string {
	return "c_" + base36Millis(n.now()) + "_" + n.suffix()
}

// Normalize coerces raw into a Task. It accepts decoded JSON objects
// (map[string]any) as well as Task values. The boolean is false only when raw
// is not an object at all. Normalizing an already normalized task returns it
// unchanged.
func (n *Normalizer) Normalize(raw any) (Task, bool) {
	rec, ok := asRecord(raw)
	if !ok {
		return Task{}, false
	}
	now := n.now()
	t := Task{
		ID:          coerceString(rec["id"]),
		Title:       strings.TrimSpace(coerceString(rec["title"])),
		Description: strings.TrimSpace(coerceString(rec["description"])),
		DueDate:     strings.TrimSpace(coerceString(rec["dueDate"])),
		Priority:    ParsePriority(coerceString(rec["priority"])),
		Category:    strings.TrimSpace(coerceString(rec["category"])),
		TeamMembers: decodeTeamMembers(rec),
		Subtasks:    n.normalizeSubtasks(rec["subtasks"], now),
		Status:      ParseStatus(coerceString(rec["status"])),
		CreatedAt:   coerceMillis(rec["createdAt"]),
	}
	if t.ID == "" {
		t.ID = n.NewTaskID()
	}
	if t.Category == "" {
		t.Category = DefaultCategory
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = now.UnixMilli()
	}
	return t, true
}

// NormalizeList normalizes every record and drops the ones that are not objects.
func (n *Normalizer) NormalizeList(raws []any) []Task {
	out := make([]Task, 0, len(raws))
	for _, raw := range raws {
		if t, ok := n.Normalize(raw); ok {
			out = append(out, t)
		}
	}
	return out
}

// NormalizeContact coerces raw into a Contact, deriving id and colour when missing.
func (n *Normalizer) NormalizeContact(raw any) (Contact, bool) {
	var rec map[string]any
	switch v := raw.(type) {
	case map[string]any:
		rec = v
	case Contact:
		rec = contactRecord(v)
	case *Contact:
		if v == nil {
			return Contact{}, false
		}
		rec = contactRecord(*v)
	default:
		return Contact{}, false
	}
	c := Contact{
		ID:    coerceString(rec["id"]),
		Name:  strings.TrimSpace(coerceString(rec["name"])),
		Email: strings.TrimSpace(coerceString(rec["email"])),
		Phone: strings.TrimSpace(coerceString(rec["phone"])),
		Color: strings.TrimSpace(coerceString(rec["color"])),
	}
	if c.ID == "" {
		c.ID = n.NewContactID()
	}
	if c.Color == "" {
		c.Color = ColorForName(c.Name)
	}
	return c, true
}

// NormalizeContacts normalizes every record and drops the ones that are not objects.
func (n *Normalizer) NormalizeContacts(raws []any) []Contact {
	out := make([]Contact, 0, len(raws))
	for _, raw := range raws {
		if c, ok := n.NormalizeContact(raw); ok {
			out = append(out, c)
		}
	}
	return out
}

func (n *Normalizer) normalizeSubtasks(raw any, now time.Time) []Subtask {
	list, _ := raw.([]any)
	out := make([]Subtask, 0, len(list))
	for i, item := range list {
		baseID := "s_" + strconv.Itoa(i) + "_" + base36Millis(now)
		switch v := item.(type) {
		case string:
			out = append(out, Subtask{ID: baseID, Text: v})
		case map[string]any:
			s := Subtask{
				ID:   coerceString(v["id"]),
				Text: coerceString(v["text"]),
				Done: truthy(v["done"]),
			}
			if s.ID == "" {
				s.ID = baseID
			}
			out = append(out, s)
		default:
			out = append(out, Subtask{ID: baseID})
		}
	}
	return out
}

func recordSchema(rec map[string]any) int {
	if _, ok := rec["teamMembers"].([]any); ok {
		return schemaCurrent
	}
	return schemaLegacy
}

func decodeTeamMembers(rec map[string]any) []string {
	var list []any
	switch recordSchema(rec) {
	case schemaCurrent:
		list = rec["teamMembers"].([]any)
	case schemaLegacy:
		list, _ = rec["assignees"].([]any)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if id := coerceString(item); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func asRecord(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case Task:
		return taskRecord(v), true
	case *Task:
		if v == nil {
			return nil, false
		}
		return taskRecord(*v), true
	default:
		return nil, false
	}
}

func taskRecord(t Task) map[string]any {
	members := make([]any, len(t.TeamMembers))
	for i, m := range t.TeamMembers {
		members[i] = m
	}
	subtasks := make([]any, len(t.Subtasks))
	for i, s := range t.Subtasks {
		subtasks[i] = map[string]any{"id": s.ID, "text": s.Text, "done": s.Done}
	}
	return map[string]any{
		"id":          t.ID,
		"title":       t.Title,
		"description": t.Description,
		"dueDate":     t.DueDate,
		"priority":    string(t.Priority),
		"category":    t.Category,
		"teamMembers": members,
		"subtasks":    subtasks,
		"status":      string(t.Status),
		"createdAt":   t.CreatedAt,
	}
}

func contactRecord(c Contact) map[string]any {
	return map[string]any{"id": c.ID, "name": c.Name, "email": c.Email, "phone": c.Phone, "color": c.Color}
}

// coerceString converts scalar JSON values to text. Zero-like values become "".
func coerceString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if !x {
			return ""
		}
		return "true"
	case float64:
		if x == 0 || math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		if x == 0 {
			return ""
		}
		return strconv.Itoa(x)
	case int64:
		if x == 0 {
			return ""
		}
		return strconv.FormatInt(x, 10)
	case fmt.Stringer:
		return x.String()
	default:
		return ""
	}
}

// coerceMillis returns 0 for anything that is not a finite number in int64
// range, so the caller's clock default applies.
func coerceMillis(v any) int64 {
	switch x := v.(type) {
	case float64:
		return floatMillis(x)
	case int:
		return int64(x)
	case int64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		return floatMillis(f)
	default:
		return 0
	}
}

func floatMillis(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	case int64:
		return x != 0
	default:
		return true
	}
}
