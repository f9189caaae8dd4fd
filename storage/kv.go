package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"join-board/domain"
)

const (
	tasksKey    = "joinTasks"
	contactsKey = "joinContacts"
)

// KV keeps each collection as one JSON value in Redis, the server-side
// counterpart of the browser's local storage.
type KV struct {
	client    *redis.Client
	namespace string
}

// NewKV creates a key-value provider. namespace, when set, prefixes both keys.
func NewKV(client *redis.Client, namespace string) *KV {
	if client == nil {
		panic("storage.NewKV: redis client is nil")
	}
	return &KV{client: client, namespace: namespace}
}

func (k *KV) key(name string) string {
	if k.namespace == "" {
		return name
	}
	return k.namespace + ":" + name
}

func (k *KV) LoadTasks(ctx context.Context) ([]any, error) {
	return k.load(ctx, tasksKey)
}

func (k *KV) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return k.save(ctx, tasksKey, tasks)
}

func (k *KV) LoadContacts(ctx context.Context) ([]any, error) {
	return k.load(ctx, contactsKey)
}

func (k *KV) SaveContacts(ctx context.Context, contacts []domain.Contact) error {
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	return k.save(ctx, contactsKey, contacts)
}

func (k *KV) load(ctx context.Context, name string) ([]any, error) {
	data, err := k.client.Get(ctx, k.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %s: %w", name, err)
	}
	records, err := decodeCollection(data)
	if err != nil {
		return nil, fmt.Errorf("kv decode %s: %w", name, err)
	}
	return records, nil
}

func (k *KV) save(ctx context.Context, name string, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	if err := k.client.Set(ctx, k.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("kv set %s: %w", name, err)
	}
	return nil
}
