package config

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "DEBUG", "STORAGE_PROVIDER", "FIREBASE_URL", "FIREBASE_TIMEOUT",
		"STORAGE_CONNECTION_STRING", "TASKS_TABLE", "CONTACTS_TABLE", "BOARD_PARTITION",
		"REDIS_NAMESPACE", "CACHE_TTL", "DEDUPER_TTL", "SESSION_TTL",
		"CHANGE_FEED", "CHANGE_CHANNEL", "CHANGE_QUEUE",
		"SAVE_BUFFER", "SAVE_TIMEOUT", "SAVE_HANDOFF_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("REDIS_CONNECTION_STRING", "localhost:6379")
	t.Setenv("SESSION_SECRET", "secret")
}

func TestFromEnvDefaults(t *testing.T) {
	setBaseEnv(t)

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if c.Port != "8080" || c.Provider != ProviderRedis || c.ChangeFeed != FeedNone {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if c.TasksTable != "JoinTasks" || c.ContactsTable != "JoinContacts" || c.Partition != "board" {
		t.Fatalf("unexpected table defaults %+v", c)
	}
	if c.SaveBuffer != 256 || c.SaveTimeout != 30*time.Second || c.SaveHandoffTimeout != 15*time.Millisecond {
		t.Fatalf("unexpected save defaults %+v", c)
	}
	if c.DeduperTTL != 24*time.Hour || c.SessionTTL != 24*time.Hour || c.CacheTTL != 0 {
		t.Fatalf("unexpected ttl defaults %+v", c)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORAGE_PROVIDER", "Firebase")
	t.Setenv("FIREBASE_URL", "https://join.example.com")
	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("SAVE_BUFFER", "8")
	t.Setenv("DEBUG", "true")

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if c.Provider != ProviderFirebase || c.FirebaseURL != "https://join.example.com" {
		t.Fatalf("unexpected provider config %+v", c)
	}
	if c.CacheTTL != time.Minute || c.SaveBuffer != 8 || !c.Debug {
		t.Fatalf("unexpected overrides %+v", c)
	}
}

func TestFromEnvValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "missingSecret", env: map[string]string{"SESSION_SECRET": ""}, want: "SESSION_SECRET"},
		{name: "unknownProvider", env: map[string]string{"STORAGE_PROVIDER": "sqlite"}, want: "unsupported STORAGE_PROVIDER"},
		{name: "firebaseWithoutURL", env: map[string]string{"STORAGE_PROVIDER": "firebase"}, want: "FIREBASE_URL"},
		{name: "tableWithoutConnection", env: map[string]string{"STORAGE_PROVIDER": "table"}, want: "STORAGE_CONNECTION_STRING"},
		{name: "queueFeedWithoutQueue", env: map[string]string{"CHANGE_FEED": "queue"}, want: "CHANGE_QUEUE"},
		{name: "badDuration", env: map[string]string{"SAVE_TIMEOUT": "soon"}, want: "invalid SAVE_TIMEOUT"},
		{name: "negativeDuration", env: map[string]string{"CACHE_TTL": "-1s"}, want: "invalid CACHE_TTL"},
		{name: "zeroBuffer", env: map[string]string{"SAVE_BUFFER": "0"}, want: "invalid SAVE_BUFFER"},
		{name: "badBuffer", env: map[string]string{"SAVE_BUFFER": "many"}, want: "invalid SAVE_BUFFER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
