package core

import "time"

// Default configuration values, per §6.
var (
	// DefaultMaxFrameSize is the maximum payload bytes per frame.
	DefaultMaxFrameSize = 65536
	// DefaultConnectionIdleTimeout closes idle connections after this long.
	DefaultConnectionIdleTimeout = 120 * time.Second
	// DefaultMaxConnectionSendRetryAttempts bounds tolerated send failures
	// per outbound path.
	DefaultMaxConnectionSendRetryAttempts = 2
	// DefaultHeartbeatInterval is the cache-expiry scan period.
	DefaultHeartbeatInterval = 1 * time.Second
	// DefaultMessageCacheCapacity bounds the seen-set size.
	DefaultMessageCacheCapacity = 1024
	// DefaultMessageCacheTTL bounds seen-set entry age.
	DefaultMessageCacheTTL = 5 * time.Second
	// DefaultMaxSubstreamAttempts bounds substream negotiation retries
	// before a connection handler disables itself (§4.4).
	DefaultMaxSubstreamAttempts = 5
)

// Config holds the tunables recognised by the core (§6). There is no CLI,
// environment-variable surface, or persisted state; a Config is built
// programmatically via NewConfig and Options.
type Config struct {
	MaxFrameSize                   int
	ConnectionIdleTimeout          time.Duration
	MaxConnectionSendRetryAttempts int
	HeartbeatInterval              time.Duration
	HeartbeatInitialDelay          time.Duration
	MessageCacheCapacity           int
	MessageCacheTTL                time.Duration
	MaxSubstreamAttempts           int
	Hasher                         Hasher
}

// Hasher is implemented by topichash.IdentityHasher / topichash.Sha256Hasher;
// it has the same method set as topichash.Hasher, and since TopicHash is a
// type alias onto topichash.TopicHash any topichash.Hasher satisfies it.
type Hasher interface {
	Hash(topic string) TopicHash
}

// Option configures a Config, following the functional-options idiom the
// teacher uses throughout pubsub.go.
type Option func(*Config) error

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxFrameSize:                   DefaultMaxFrameSize,
		ConnectionIdleTimeout:          DefaultConnectionIdleTimeout,
		MaxConnectionSendRetryAttempts: DefaultMaxConnectionSendRetryAttempts,
		HeartbeatInterval:              DefaultHeartbeatInterval,
		HeartbeatInitialDelay:          0,
		MessageCacheCapacity:           DefaultMessageCacheCapacity,
		MessageCacheTTL:                DefaultMessageCacheTTL,
		MaxSubstreamAttempts:           DefaultMaxSubstreamAttempts,
	}
}

// NewConfig builds a Config from the defaults plus any Options, applied in
// order, the way NewPubSub applies Option values over its zero-value
// PubSub.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// WithMaxFrameSize overrides the maximum per-frame payload size.
func WithMaxFrameSize(n int) Option {
	return func(c *Config) error {
		c.MaxFrameSize = n
		return nil
	}
}

// WithConnectionIdleTimeout overrides the idle-connection close timeout.
func WithConnectionIdleTimeout(d time.Duration) Option {
	return func(c *Config) error {
		c.ConnectionIdleTimeout = d
		return nil
	}
}

// WithMaxConnectionSendRetryAttempts overrides the outbound send retry
// budget.
func WithMaxConnectionSendRetryAttempts(n int) Option {
	return func(c *Config) error {
		c.MaxConnectionSendRetryAttempts = n
		return nil
	}
}

// WithHeartbeatInterval overrides the cache-expiry scan period.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *Config) error {
		c.HeartbeatInterval = d
		return nil
	}
}

// WithMessageCacheCapacity overrides the seen-set capacity.
func WithMessageCacheCapacity(n int) Option {
	return func(c *Config) error {
		c.MessageCacheCapacity = n
		return nil
	}
}

// WithMessageCacheTTL overrides the seen-set entry TTL.
func WithMessageCacheTTL(d time.Duration) Option {
	return func(c *Config) error {
		c.MessageCacheTTL = d
		return nil
	}
}

// WithTopicHasher overrides the topic hashing scheme (identity by default).
func WithTopicHasher(h Hasher) Option {
	return func(c *Config) error {
		c.Hasher = h
		return nil
	}
}
