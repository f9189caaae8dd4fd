package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage providers selectable with STORAGE_PROVIDER.
const (
	ProviderFirebase = "firebase"
	ProviderRedis    = "redis"
	ProviderTable    = "table"
)

// Change feeds selectable with CHANGE_FEED.
const (
	FeedNone  = "none"
	FeedRedis = "redis"
	FeedQueue = "queue"
)

// Config is the service configuration read from the environment.
type Config struct {
	Port  string
	Debug bool

	Provider        string
	FirebaseURL     string
	FirebaseTimeout time.Duration

	StorageConnection string
	TasksTable        string
	ContactsTable     string
	Partition         string

	RedisConnection string
	RedisNamespace  string
	CacheTTL        time.Duration
	DeduperTTL      time.Duration

	SessionSecret string
	SessionTTL    time.Duration

	ChangeFeed    string
	ChangeChannel string
	ChangeQueue   string

	SaveBuffer         int
	SaveTimeout        time.Duration
	SaveHandoffTimeout time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds and validates a Config from the environment only.
func FromEnv() (Config, error) {
	var errs []error
	c := Config{
		Port:              envString("PORT", "8080"),
		Debug:             envBool("DEBUG", false),
		Provider:          strings.ToLower(envString("STORAGE_PROVIDER", ProviderRedis)),
		FirebaseURL:       os.Getenv("FIREBASE_URL"),
		StorageConnection: os.Getenv("STORAGE_CONNECTION_STRING"),
		TasksTable:        envString("TASKS_TABLE", "JoinTasks"),
		ContactsTable:     envString("CONTACTS_TABLE", "JoinContacts"),
		Partition:         envString("BOARD_PARTITION", "board"),
		RedisConnection:   os.Getenv("REDIS_CONNECTION_STRING"),
		RedisNamespace:    os.Getenv("REDIS_NAMESPACE"),
		SessionSecret:     os.Getenv("SESSION_SECRET"),
		ChangeFeed:        strings.ToLower(envString("CHANGE_FEED", FeedNone)),
		ChangeChannel:     envString("CHANGE_CHANNEL", "join-board-changes"),
		ChangeQueue:       os.Getenv("CHANGE_QUEUE"),
	}
	durations := []struct {
		dst *time.Duration
		key string
		def time.Duration
	}{
		{&c.FirebaseTimeout, "FIREBASE_TIMEOUT", 10 * time.Second},
		{&c.CacheTTL, "CACHE_TTL", 0},
		{&c.DeduperTTL, "DEDUPER_TTL", 24 * time.Hour},
		{&c.SessionTTL, "SESSION_TTL", 24 * time.Hour},
		{&c.SaveTimeout, "SAVE_TIMEOUT", 30 * time.Second},
		{&c.SaveHandoffTimeout, "SAVE_HANDOFF_TIMEOUT", 15 * time.Millisecond},
	}
	for _, d := range durations {
		v, err := envDur(d.key, d.def)
		if err != nil {
			errs = append(errs, err)
		}
		*d.dst = v
	}
	buf, err := envInt("SAVE_BUFFER", 256)
	if err != nil {
		errs = append(errs, err)
	}
	c.SaveBuffer = buf

	errs = append(errs, c.validate()...)
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return c, nil
}

func (c Config) validate() []error {
	var errs []error
	switch c.Provider {
	case ProviderFirebase:
		if c.FirebaseURL == "" {
			errs = append(errs, errors.New("missing FIREBASE_URL"))
		}
	case ProviderRedis:
		if c.RedisConnection == "" {
			errs = append(errs, errors.New("missing REDIS_CONNECTION_STRING"))
		}
	case ProviderTable:
		if c.StorageConnection == "" {
			errs = append(errs, errors.New("missing STORAGE_CONNECTION_STRING"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE_PROVIDER %q", c.Provider))
	}
	switch c.ChangeFeed {
	case FeedNone:
	case FeedRedis:
		if c.RedisConnection == "" {
			errs = append(errs, errors.New("CHANGE_FEED=redis requires REDIS_CONNECTION_STRING"))
		}
	case FeedQueue:
		if c.StorageConnection == "" || c.ChangeQueue == "" {
			errs = append(errs, errors.New("CHANGE_FEED=queue requires STORAGE_CONNECTION_STRING and CHANGE_QUEUE"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported CHANGE_FEED %q", c.ChangeFeed))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("missing SESSION_SECRET"))
	}
	if c.SaveBuffer <= 0 {
		errs = append(errs, errors.New("invalid SAVE_BUFFER: must be greater than zero"))
	}
	if c.SaveTimeout <= 0 {
		errs = append(errs, errors.New("invalid SAVE_TIMEOUT: must be greater than zero"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("invalid SESSION_TTL: must be greater than zero"))
	}
	return errs
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDur(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return def, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
