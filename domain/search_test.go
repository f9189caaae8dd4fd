package domain

import (
	"reflect"
	"testing"
	"time"
)

func TestVisibleTasksMatchesTitleAndDescription(t *testing.T) {
	_, tasks, _, _ := SeedIfEmpty(nil, nil, time.Now())

	got := VisibleTasks(tasks, StatusAwaitFeedback, "recipe")
	if want := []string{"t_demo_daily"}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("unexpected matches %v", ids(got))
	}

	desc := VisibleTasks(tasks, StatusTodo, "  FALLBACK ")
	if want := []string{"t_demo_api"}; !reflect.DeepEqual(ids(desc), want) {
		t.Fatalf("description match failed: %v", ids(desc))
	}

	if got := VisibleTasks(tasks, StatusDone, "recipe"); len(got) != 0 {
		t.Fatalf("expected no matches in done, got %v", ids(got))
	}
}

func TestVisibleTasksEmptyQueryReturnsLane(t *testing.T) {
	tasks := []Task{task("A", StatusTodo), task("B", StatusDone), task("C", StatusTodo)}
	for _, q := range []string{"", "   "} {
		if got := ids(VisibleTasks(tasks, StatusTodo, q)); !reflect.DeepEqual(got, []string{"A", "C"}) {
			t.Fatalf("query %q: unexpected lane %v", q, got)
		}
	}
}

func TestBoardLanesAndSearch(t *testing.T) {
	b := newTestBoard(task("Alpha", StatusTodo), task("Beta", StatusTodo), task("Gamma", StatusDone))
	b.SetSearch("al")
	if b.Search() != "al" {
		t.Fatalf("search not stored: %q", b.Search())
	}
	lanes := b.Lanes(b.Search())
	if len(lanes) != len(StatusOrder) {
		t.Fatalf("expected %d lanes, got %d", len(StatusOrder), len(lanes))
	}
	if lanes[0].Status != StatusTodo || lanes[0].Total != 2 || !reflect.DeepEqual(ids(lanes[0].Tasks), []string{"Alpha"}) {
		t.Fatalf("unexpected todo lane %#v", lanes[0])
	}
	if lanes[3].Label != "Done" || len(lanes[3].Tasks) != 0 {
		t.Fatalf("unexpected done lane %#v", lanes[3])
	}
}
