package domain

import (
	"math"
	"strings"
)

// FormatDateForDisplay turns YYYY-MM-DD into DD/MM/YYYY. Empty input renders
// as a dash; values already containing a slash are returned as is.
func FormatDateForDisplay(v string) string {
	text := strings.TrimSpace(v)
	if text == "" {
		return "—"
	}
	if strings.Contains(text, "/") {
		return text
	}
	parts := strings.Split(text, "-")
	if len(parts) != 3 {
		return text
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}

// FormatDateForInput turns DD/MM/YYYY back into YYYY-MM-DD. Unrecognized
// values yield "".
func FormatDateForInput(v string) string {
	text := strings.TrimSpace(v)
	if text == "" {
		return ""
	}
	if strings.Contains(text, "-") {
		return text
	}
	parts := strings.Split(text, "/")
	if len(parts) != 3 {
		return ""
	}
	return parts[2] + "-" + parts[1] + "-" + parts[0]
}

// Progress counts completed subtasks.
type Progress struct {
	Done    int `json:"done"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

func SubtaskProgress(subtasks []Subtask) Progress {
	p := Progress{Total: len(subtasks)}
	if p.Total == 0 {
		return p
	}
	for _, s := range subtasks {
		if s.Done {
			p.Done++
		}
	}
	p.Percent = int(math.Round(float64(p.Done) / float64(p.Total) * 100))
	return p
}
