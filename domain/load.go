package domain

import (
	"context"
	"errors"
	"fmt"
)

// Gateway persists whole task and contact collections. Loads return raw
// records exactly as stored; they are normalized by the board. A load error
// means the state is unknown, which is different from an empty result.
type Gateway interface {
	LoadTasks(ctx context.Context) ([]any, error)
	SaveTasks(ctx context.Context, tasks []Task) error
	LoadContacts(ctx context.Context) ([]any, error)
	SaveContacts(ctx context.Context, contacts []Contact) error
}

var (
	// ErrTaskNotFound is returned when an operation names an unknown task.
	ErrTaskNotFound = errors.New("task not found")
	// ErrSaveFailed wraps provider errors on save. The in-memory board keeps
	// the change that could not be persisted.
	ErrSaveFailed = errors.New("save failed")
)

// LoadResult describes what LoadAll did.
type LoadResult struct {
	Tasks    int
	Contacts int
	Seeded   bool
}

// LoadAll fills the board from gw. An empty task collection is seeded with
// the demo data, which is written back before the board reports Loaded. A
// failed load leaves the board untouched and never seeds. A failed
// write-back still populates the board and is reported as ErrSaveFailed.
func (b *Board) LoadAll(ctx context.Context, gw Gateway) (LoadResult, error) {
	rawContacts, err := gw.LoadContacts(ctx)
	if err != nil {
		return LoadResult{}, fmt.Errorf("load contacts: %w", err)
	}
	rawTasks, err := gw.LoadTasks(ctx)
	if err != nil {
		return LoadResult{}, fmt.Errorf("load tasks: %w", err)
	}

	contacts := b.normalizer.NormalizeContacts(rawContacts)
	tasks := b.normalizer.NormalizeList(rawTasks)
	contacts, tasks, seeded, contactsChanged := SeedIfEmpty(contacts, tasks, b.normalizer.now())

	// The board is published only after the write-back so no later save can
	// be overtaken by the seed snapshot.
	res := LoadResult{Tasks: len(tasks), Contacts: len(contacts), Seeded: seeded}
	var saveErrs []error
	if contactsChanged {
		if err := gw.SaveContacts(ctx, contacts); err != nil {
			saveErrs = append(saveErrs, fmt.Errorf("contacts: %w", err))
		}
	}
	if seeded {
		if err := gw.SaveTasks(ctx, tasks); err != nil {
			saveErrs = append(saveErrs, fmt.Errorf("tasks: %w", err))
		}
	}
	b.Replace(tasks, contacts)
	if len(saveErrs) > 0 {
		return res, fmt.Errorf("%w: %w", ErrSaveFailed, errors.Join(saveErrs...))
	}
	return res, nil
}
