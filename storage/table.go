package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"

	"join-board/domain"
)

type tableClient interface {
	NewListEntitiesPager(opts *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
	UpsertEntity(ctx context.Context, entity []byte, opts *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, opts *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
}

// Table stores one entity per task and per contact in Azure Table Storage.
// Board order is kept in the Position column since rows are listed by key.
type Table struct {
	tasks     tableClient
	contacts  tableClient
	partition string
}

// TableOptions returns the client options used for table access.
func TableOptions() *aztables.ClientOptions {
	return &aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: 15 * time.Second,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
}

// NewTable creates a provider from a storage connection string.
func NewTable(connStr, tasksTable, contactsTable, partition string) (*Table, error) {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, TableOptions())
	if err != nil {
		return nil, err
	}
	return newTable(svc.NewClient(tasksTable), svc.NewClient(contactsTable), partition), nil
}

func newTable(tasks, contacts tableClient, partition string) *Table {
	if partition == "" {
		partition = "board"
	}
	return &Table{tasks: tasks, contacts: contacts, partition: partition}
}

type taskEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description"`
	DueDate     string `json:"DueDate"`
	Priority    string `json:"Priority"`
	Category    string `json:"Category"`
	TeamMembers string `json:"TeamMembers"`
	Subtasks    string `json:"Subtasks"`
	Status      string `json:"Status"`
	CreatedAt   int64  `json:"CreatedAt"`
	Position    int    `json:"Position"`
}

type contactEntity struct {
	aztables.Entity
	Name     string `json:"Name"`
	Email    string `json:"Email"`
	Phone    string `json:"Phone"`
	Color    string `json:"Color"`
	Position int    `json:"Position"`
}

func encodeTaskEntity(partition string, pos int, t domain.Task) ([]byte, error) {
	members, err := sonic.MarshalString(t.TeamMembers)
	if err != nil {
		return nil, err
	}
	subtasks, err := sonic.MarshalString(t.Subtasks)
	if err != nil {
		return nil, err
	}
	return sonic.Marshal(taskEntity{
		Entity:      aztables.Entity{PartitionKey: partition, RowKey: t.ID},
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    string(t.Priority),
		Category:    t.Category,
		TeamMembers: members,
		Subtasks:    subtasks,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		Position:    pos,
	})
}

// decodeTaskEntity maps a row back to a raw record. Team members and
// subtasks that fail to parse are left out and normalized to empty lists.
func decodeTaskEntity(data []byte) (map[string]any, int, error) {
	var ent taskEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return nil, 0, err
	}
	rec := map[string]any{
		"id":          ent.RowKey,
		"title":       ent.Title,
		"description": ent.Description,
		"dueDate":     ent.DueDate,
		"priority":    ent.Priority,
		"category":    ent.Category,
		"status":      ent.Status,
		"createdAt":   ent.CreatedAt,
	}
	var members, subtasks any
	if sonic.UnmarshalString(ent.TeamMembers, &members) == nil {
		rec["teamMembers"] = members
	}
	if sonic.UnmarshalString(ent.Subtasks, &subtasks) == nil {
		rec["subtasks"] = subtasks
	}
	return rec, ent.Position, nil
}

func (s *Table) filter() *aztables.ListEntitiesOptions {
	f := "PartitionKey eq '" + s.partition + "'"
	return &aztables.ListEntitiesOptions{Filter: &f}
}

type positioned struct {
	rec map[string]any
	pos int
}

func sortPositioned(rows []positioned) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].pos < rows[j].pos })
}

func (s *Table) LoadTasks(ctx context.Context) ([]any, error) {
	return s.list(ctx, s.tasks, decodeTaskEntity)
}

func (s *Table) LoadContacts(ctx context.Context) ([]any, error) {
	return s.list(ctx, s.contacts, decodeContactEntity)
}

func (s *Table) list(ctx context.Context, client tableClient, decode func([]byte) (map[string]any, int, error)) ([]any, error) {
	pager := client.NewListEntitiesPager(s.filter())
	rows := []positioned{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			if isNotFound(err) {
				return []any{}, nil
			}
			return nil, err
		}
		for _, e := range resp.Entities {
			rec, pos, err := decode(e)
			if err != nil {
				return nil, err
			}
			rows = append(rows, positioned{rec: rec, pos: pos})
		}
	}
	sortPositioned(rows)
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r.rec
	}
	return out, nil
}

// SaveTasks upserts every task with its board position and deletes rows
// whose task no longer exists.
func (s *Table) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	keep := make(map[string]struct{}, len(tasks))
	for i, t := range tasks {
		payload, err := encodeTaskEntity(s.partition, i, t)
		if err != nil {
			return err
		}
		if _, err := s.tasks.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace}); err != nil {
			return fmt.Errorf("upsert task %s: %w", t.ID, err)
		}
		keep[t.ID] = struct{}{}
	}
	return s.prune(ctx, s.tasks, keep)
}

func (s *Table) SaveContacts(ctx context.Context, contacts []domain.Contact) error {
	keep := make(map[string]struct{}, len(contacts))
	for i, c := range contacts {
		payload, err := sonic.Marshal(contactEntity{
			Entity:   aztables.Entity{PartitionKey: s.partition, RowKey: c.ID},
			Name:     c.Name,
			Email:    c.Email,
			Phone:    c.Phone,
			Color:    c.Color,
			Position: i,
		})
		if err != nil {
			return err
		}
		if _, err := s.contacts.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace}); err != nil {
			return fmt.Errorf("upsert contact %s: %w", c.ID, err)
		}
		keep[c.ID] = struct{}{}
	}
	return s.prune(ctx, s.contacts, keep)
}

func decodeContactEntity(data []byte) (map[string]any, int, error) {
	var ent contactEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return nil, 0, err
	}
	return map[string]any{
		"id":    ent.RowKey,
		"name":  ent.Name,
		"email": ent.Email,
		"phone": ent.Phone,
		"color": ent.Color,
	}, ent.Position, nil
}

func (s *Table) prune(ctx context.Context, client tableClient, keep map[string]struct{}) error {
	pager := client.NewListEntitiesPager(s.filter())
	var stale []string
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, e := range resp.Entities {
			var ent aztables.Entity
			if err := sonic.Unmarshal(e, &ent); err != nil {
				return err
			}
			if _, ok := keep[ent.RowKey]; !ok {
				stale = append(stale, ent.RowKey)
			}
		}
	}
	for _, rk := range stale {
		if _, err := client.DeleteEntity(ctx, s.partition, rk, nil); err != nil && !isNotFound(err) {
			return fmt.Errorf("delete %s: %w", rk, err)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}
