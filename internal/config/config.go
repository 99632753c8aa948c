// Package config loads the graphsync TOML configuration.
//
// A minimal file for the in-memory backend:
//
//	[graph]
//	container_collection = "graphs"
//	container_id = "g1"
//
//	[[graph.entities]]
//	key = "people"
//	collection = "people"
//
//	[graph.relations]
//	collection = "memberships"
package config

import (
	"context"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/graphsync/pkg/diagram"
	"github.com/matzehuels/graphsync/pkg/errors"
	"github.com/matzehuels/graphsync/pkg/resource"
	"github.com/matzehuels/graphsync/pkg/session"
)

// Backend kinds.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Defaults applied by Validate.
const (
	DefaultAddr          = "127.0.0.1:8080"
	DefaultFetchAttempts = 3
	DefaultRetryDelay    = 200 * time.Millisecond
)

// Config is the full configuration file.
type Config struct {
	Backend Backend `toml:"backend"`
	Graph   Graph   `toml:"graph"`
	Server  Server  `toml:"server"`
}

// Backend selects and configures the resource store.
type Backend struct {
	Kind          string   `toml:"kind"`
	RedisURL      string   `toml:"redis_url"`
	MongoURI      string   `toml:"mongo_uri"`
	MongoDatabase string   `toml:"mongo_database"`
	KeyPrefix     string   `toml:"key_prefix"`
	FetchAttempts int      `toml:"fetch_attempts"`
	RetryDelay    Duration `toml:"retry_delay"`

	// Seed is inserted into the memory backend on open, ids preserved.
	Seed []Record `toml:"seed"`
}

// Record is one seeded resource.
type Record struct {
	ID         string         `toml:"id"`
	Collection string         `toml:"collection"`
	Source     string         `toml:"source"`
	Target     string         `toml:"target"`
	Attributes map[string]any `toml:"attributes"`
}

// Graph describes the session to load.
type Graph struct {
	ContainerCollection string         `toml:"container_collection"`
	ContainerID         string         `toml:"container_id"`
	IDKey               string         `toml:"id_key"`
	Entities            []EntitySource `toml:"entities"`
	Relations           resource.Spec  `toml:"relations"`
}

// EntitySource is one [[graph.entities]] table. Order in the file is load order.
type EntitySource struct {
	Key        string            `toml:"key"`
	Collection string            `toml:"collection"`
	Query      map[string]string `toml:"query"`
}

// Server configures the HTTP command surface.
type Server struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a string such as "250ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config")
	}
	return Parse(data)
}

// Parse decodes and validates TOML data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fills defaults and checks the configuration.
func (c *Config) Validate() error {
	if c.Backend.Kind == "" {
		c.Backend.Kind = BackendMemory
	}
	if c.Backend.FetchAttempts == 0 {
		c.Backend.FetchAttempts = DefaultFetchAttempts
	}
	if c.Backend.RetryDelay.Duration == 0 {
		c.Backend.RetryDelay.Duration = DefaultRetryDelay
	}
	if c.Graph.IDKey == "" {
		c.Graph.IDKey = diagram.DefaultIDKey
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}

	switch c.Backend.Kind {
	case BackendMemory:
	case BackendRedis:
		if err := errors.ValidateURL(c.Backend.RedisURL, "redis", "rediss"); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "backend.redis_url")
		}
	case BackendMongo:
		if err := errors.ValidateURL(c.Backend.MongoURI, "mongodb", "mongodb+srv"); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "backend.mongo_uri")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown backend kind %q", c.Backend.Kind)
	}
	if len(c.Backend.Seed) > 0 && c.Backend.Kind != BackendMemory {
		return errors.New(errors.ErrCodeInvalidConfig, "backend.seed is only supported by the memory backend")
	}
	if c.Backend.FetchAttempts < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "backend.fetch_attempts must be positive")
	}

	desc := c.Descriptor()
	if err := desc.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "graph")
	}
	return nil
}

// Descriptor builds the session descriptor for the [graph] section.
func (c *Config) Descriptor() session.Descriptor {
	desc := session.Descriptor{
		Container: session.ContainerRef{
			Collection: c.Graph.ContainerCollection,
			ID:         c.Graph.ContainerID,
		},
		Relations: c.Graph.Relations,
		IDKey:     c.Graph.IDKey,
	}
	for _, e := range c.Graph.Entities {
		desc.Entities = append(desc.Entities, session.EntitySource{
			Key:  e.Key,
			Spec: resource.Spec{Collection: e.Collection, Query: e.Query},
		})
	}
	return desc
}

// Store is an opened backend.
type Store struct {
	resource.Client
	close func(context.Context) error
}

// Close releases the backend connection.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Open connects to the configured backend and wraps it with read retries.
// The memory backend is seeded first.
func (b Backend) Open(ctx context.Context, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	var (
		client resource.Client
		closer func(context.Context) error
	)

	switch b.Kind {
	case BackendRedis:
		rs, err := resource.NewRedisStore(ctx, resource.RedisConfig{URL: b.RedisURL, Prefix: b.KeyPrefix}, logger)
		if err != nil {
			return nil, err
		}
		client = rs
		closer = func(context.Context) error { return rs.Close() }
	case BackendMongo:
		ms, err := resource.NewMongoStore(ctx, resource.MongoConfig{URI: b.MongoURI, Database: b.MongoDatabase}, logger)
		if err != nil {
			return nil, err
		}
		client = ms
		closer = ms.Close
	default:
		mem := resource.NewMemoryStore()
		mem.Seed(b.records()...)
		client = mem
	}

	logger.Debug("backend opened", "kind", b.Kind, "seeded", len(b.Seed))
	return &Store{
		Client: resource.NewRetrying(client, b.FetchAttempts, b.RetryDelay.Duration, logger),
		close:  closer,
	}, nil
}

func (b Backend) records() []resource.Resource {
	out := make([]resource.Resource, 0, len(b.Seed))
	for _, r := range b.Seed {
		out = append(out, resource.Resource{
			ID:         r.ID,
			Collection: r.Collection,
			Source:     r.Source,
			Target:     r.Target,
			Attributes: r.Attributes,
		})
	}
	return out
}
