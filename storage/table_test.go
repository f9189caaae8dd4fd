package storage

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"

	"join-board/domain"
)

type fakeTable struct {
	mu      sync.Mutex
	rows    map[string][]byte
	listErr error
	deleted []string
}

func newFakeTable() *fakeTable {
	return &fakeTable{rows: map[string][]byte{}}
}

func (f *fakeTable) NewListEntitiesPager(opts *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse] {
	return runtime.NewPager(runtime.PagingHandler[aztables.ListEntitiesResponse]{
		More: func(aztables.ListEntitiesResponse) bool { return false },
		Fetcher: func(ctx context.Context, _ *aztables.ListEntitiesResponse) (aztables.ListEntitiesResponse, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.listErr != nil {
				return aztables.ListEntitiesResponse{}, f.listErr
			}
			keys := make([]string, 0, len(f.rows))
			for k := range f.rows {
				keys = append(keys, k)
			}
			// Azure lists rows ordered by key, not by insertion.
			sort.Strings(keys)
			entities := make([][]byte, 0, len(keys))
			for _, k := range keys {
				entities = append(entities, f.rows[k])
			}
			return aztables.ListEntitiesResponse{Entities: entities}, nil
		},
	})
}

func (f *fakeTable) UpsertEntity(ctx context.Context, entity []byte, opts *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error) {
	var ent aztables.Entity
	if err := sonic.Unmarshal(entity, &ent); err != nil {
		return aztables.UpsertEntityResponse{}, err
	}
	f.mu.Lock()
	f.rows[ent.RowKey] = entity
	f.mu.Unlock()
	return aztables.UpsertEntityResponse{}, nil
}

func (f *fakeTable) DeleteEntity(ctx context.Context, pk, rk string, opts *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[rk]; !ok {
		return aztables.DeleteEntityResponse{}, &azcore.ResponseError{StatusCode: 404}
	}
	delete(f.rows, rk)
	f.deleted = append(f.deleted, rk)
	return aztables.DeleteEntityResponse{}, nil
}

func loadedIDs(t *testing.T, records []any) []string {
	t.Helper()
	out := make([]string, len(records))
	for i, r := range records {
		rec, ok := r.(map[string]any)
		if !ok {
			t.Fatalf("record %d is %T", i, r)
		}
		out[i], _ = rec["id"].(string)
	}
	return out
}

func TestTableSaveLoadKeepsBoardOrder(t *testing.T) {
	tasks := newFakeTable()
	store := newTable(tasks, newFakeTable(), "")
	ctx := context.Background()

	in := []domain.Task{
		{ID: "z", Title: "last key first", Status: domain.StatusTodo, TeamMembers: []string{"c1"}, Subtasks: []domain.Subtask{{ID: "s1", Text: "x", Done: true}}},
		{ID: "a", Title: "first key second", Status: domain.StatusDone},
	}
	if err := store.SaveTasks(ctx, in); err != nil {
		t.Fatalf("save tasks: %v", err)
	}
	records, err := store.LoadTasks(ctx)
	if err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	if got := loadedIDs(t, records); !reflect.DeepEqual(got, []string{"z", "a"}) {
		t.Fatalf("board order lost: %v", got)
	}

	n := domain.NewNormalizer()
	got := n.NormalizeList(records)
	if !reflect.DeepEqual(got[0].TeamMembers, []string{"c1"}) {
		t.Fatalf("team members lost: %#v", got[0].TeamMembers)
	}
	if !reflect.DeepEqual(got[0].Subtasks, in[0].Subtasks) {
		t.Fatalf("subtasks lost: %#v", got[0].Subtasks)
	}
	if got[1].Status != domain.StatusDone {
		t.Fatalf("status lost: %q", got[1].Status)
	}
}

func TestTableSaveDeletesRemovedRows(t *testing.T) {
	tasks := newFakeTable()
	store := newTable(tasks, newFakeTable(), "p")
	ctx := context.Background()

	if err := store.SaveTasks(ctx, []domain.Task{{ID: "a"}, {ID: "b"}}); err != nil {
		t.Fatalf("save tasks: %v", err)
	}
	if err := store.SaveTasks(ctx, []domain.Task{{ID: "b"}}); err != nil {
		t.Fatalf("save tasks: %v", err)
	}
	if !reflect.DeepEqual(tasks.deleted, []string{"a"}) {
		t.Fatalf("unexpected deletes %v", tasks.deleted)
	}
	records, _ := store.LoadTasks(ctx)
	if got := loadedIDs(t, records); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("unexpected rows %v", got)
	}
}

func TestTableContactsRoundTrip(t *testing.T) {
	store := newTable(newFakeTable(), newFakeTable(), "p")
	ctx := context.Background()
	in := []domain.Contact{{ID: "c2", Name: "Two", Color: "#000"}, {ID: "c1", Name: "One"}}
	if err := store.SaveContacts(ctx, in); err != nil {
		t.Fatalf("save contacts: %v", err)
	}
	records, err := store.LoadContacts(ctx)
	if err != nil {
		t.Fatalf("load contacts: %v", err)
	}
	if got := loadedIDs(t, records); !reflect.DeepEqual(got, []string{"c2", "c1"}) {
		t.Fatalf("contact order lost: %v", got)
	}
}

func TestTableLoadMissingTableIsEmpty(t *testing.T) {
	tasks := newFakeTable()
	tasks.listErr = &azcore.ResponseError{StatusCode: 404}
	store := newTable(tasks, newFakeTable(), "p")

	records, err := store.LoadTasks(context.Background())
	if err != nil {
		t.Fatalf("missing table should load empty: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestTableLoadErrorIsReturned(t *testing.T) {
	tasks := newFakeTable()
	tasks.listErr = errors.New("boom")
	store := newTable(tasks, newFakeTable(), "p")

	if _, err := store.LoadTasks(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
}
