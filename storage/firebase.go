package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"join-board/domain"
)

const maxFirebaseBody = 8 << 20

// Firebase persists collections in a Firebase Realtime Database through its
// REST interface: one JSON document per collection under <base>/<name>.json.
type Firebase struct {
	baseURL string
	client  *http.Client
}

// NewFirebase creates a provider for the database at baseURL.
func NewFirebase(baseURL string, timeout time.Duration) (*Firebase, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("firebase: missing base url")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Firebase{baseURL: baseURL, client: &http.Client{Timeout: timeout}}, nil
}

func (f *Firebase) LoadTasks(ctx context.Context) ([]any, error) {
	return f.load(ctx, "tasks")
}

// SaveTasks writes the whole task list, replacing what is stored.
func (f *Firebase) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return f.put(ctx, "tasks", tasks)
}

func (f *Firebase) LoadContacts(ctx context.Context) ([]any, error) {
	return f.load(ctx, "contacts")
}

// positionedContact carries the list index so the keyed object can be read
// back in saved order.
type positionedContact struct {
	domain.Contact
	Position int `json:"position"`
}

// SaveContacts writes contacts as an object keyed by contact id.
func (f *Firebase) SaveContacts(ctx context.Context, contacts []domain.Contact) error {
	byID := make(map[string]positionedContact, len(contacts))
	for i, c := range contacts {
		byID[c.ID] = positionedContact{Contact: c, Position: i}
	}
	return f.put(ctx, "contacts", byID)
}

func (f *Firebase) url(name string) string {
	return f.baseURL + "/" + name + ".json"
}

func (f *Firebase) load(ctx context.Context, name string) ([]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url(name), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firebase get %s: %w", name, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFirebaseBody))
	if err != nil {
		return nil, fmt.Errorf("firebase get %s: %w", name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("firebase get %s: unexpected status %d", name, resp.StatusCode)
	}
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return []any{}, nil
	}
	return decodeCollection(body)
}

func (f *Firebase) put(ctx context.Context, name string, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, f.url(name), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("firebase put %s: %w", name, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("firebase put %s: unexpected status %d", name, resp.StatusCode)
	}
	return nil
}
