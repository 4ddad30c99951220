// Package config loads the assistant command configuration from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/skosovsky/agentrun"
	"github.com/skosovsky/agentrun/guard"
)

// Environment variables overriding file values.
const (
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAgentID         = "AGENTRUN_AGENT_ID"
	EnvPollingInterval = "AGENTRUN_POLLING_INTERVAL"
	EnvRedisURL        = "REDIS_URL"
	EnvMongoURI        = "MONGO_URI"
)

// Thread store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
)

// Config is the full command configuration.
type Config struct {
	AgentID         string        `yaml:"agent_id"`
	PollingInterval time.Duration `yaml:"polling_interval"`
	Log             bool          `yaml:"log"`
	ThreadStore     ThreadStore   `yaml:"thread_store"`
	SchemaDir       string        `yaml:"schema_dir"`
	Functions       []Function    `yaml:"functions"`

	// OpenAIAPIKey is only read from the environment.
	OpenAIAPIKey string `yaml:"-"`
}

// ThreadStore selects where the conversation handle is kept. TTL applies to
// redis only.
type ThreadStore struct {
	Kind       string        `yaml:"kind"`
	Key        string        `yaml:"key"`
	RedisURL   string        `yaml:"redis_url"`
	MongoURI   string        `yaml:"mongo_uri"`
	Database   string        `yaml:"database"`
	Collection string        `yaml:"collection"`
	TTL        time.Duration `yaml:"ttl"`
}

// Function declares one SNS-backed function.
type Function struct {
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	TopicARN    string               `yaml:"topic_arn"`
	Parameters  []agentrun.Parameter `yaml:"parameters"`
}

// Load reads path (skipped when empty), applies environment overrides and
// defaults. The result is not validated; call Validate.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := decode(f, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvOpenAIAPIKey); ok {
		c.OpenAIAPIKey = v
	}
	if v, ok := lookup(EnvAgentID); ok && v != "" {
		c.AgentID = v
	}
	if v, ok := lookup(EnvPollingInterval); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPollingInterval, err)
		}
		c.PollingInterval = d
	}
	if v, ok := lookup(EnvRedisURL); ok && v != "" {
		c.ThreadStore.RedisURL = v
	}
	if v, ok := lookup(EnvMongoURI); ok && v != "" {
		c.ThreadStore.MongoURI = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.PollingInterval == 0 {
		c.PollingInterval = agentrun.DefaultPollingInterval
	}
	if c.SchemaDir == "" {
		c.SchemaDir = agentrun.DefaultSchemaDir
	}
	ts := &c.ThreadStore
	if ts.Kind == "" {
		ts.Kind = StoreMemory
	}
	if ts.Key == "" {
		ts.Key = "default"
	}
	if ts.Database == "" {
		ts.Database = "agentrun"
	}
	if ts.Collection == "" {
		ts.Collection = "threads"
	}
}

// Validate reports the first invalid setting as a *guard.ValidationError.
// The API key is checked by RequireAPIKey since only some commands need it.
func (c *Config) Validate() error {
	ts := c.ThreadStore
	return guard.First(
		guard.NotEmpty(c.AgentID, "agent_id is required"),
		guard.Guard(c.PollingInterval > agentrun.MinPollingInterval, "polling_interval must be greater than 500ms"),
		guard.Guard(slices.Contains([]string{StoreMemory, StoreRedis, StoreMongo}, ts.Kind),
			"thread_store.kind must be one of memory, redis, mongo"),
		guard.Guard(ts.Kind != StoreRedis || ts.RedisURL != "", "thread_store.redis_url is required for redis"),
		guard.Guard(ts.Kind != StoreMongo || ts.MongoURI != "", "thread_store.mongo_uri is required for mongo"),
		guard.Guard(ts.TTL >= 0, "thread_store.ttl must not be negative"),
		c.ValidateFunctions(),
	)
}

// ValidateFunctions checks only the function declarations.
func (c *Config) ValidateFunctions() error {
	var errs []error
	names := make([]string, 0, len(c.Functions))
	for i, fn := range c.Functions {
		names = append(names, fn.Name)
		errs = append(errs,
			guard.NotEmpty(fn.Name, fmt.Sprintf("functions[%d].name is required", i)),
			guard.NotEmpty(fn.TopicARN, fmt.Sprintf("functions[%d].topic_arn is required", i)),
		)
		for j, p := range fn.Parameters {
			errs = append(errs, guard.NotEmpty(p.Name, fmt.Sprintf("functions[%d].parameters[%d].name is required", i, j)))
		}
	}
	errs = append(errs, guard.NoDuplicates(names, "function names must be unique"))
	return guard.First(errs...)
}

// RequireAPIKey fails when OPENAI_API_KEY is not set.
func (c *Config) RequireAPIKey() error {
	return guard.NotEmpty(strings.TrimSpace(c.OpenAIAPIKey), EnvOpenAIAPIKey+" is required")
}
