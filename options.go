package kbretrieve

import (
	"time"

	"go.uber.org/zap"

	"github.com/cloudrag/kbretrieve/retrieval"
)

// Option configures a Retriever.
type Option interface {
	apply(*retrieverConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*retrieverConfig)

func (f optionFunc) apply(c *retrieverConfig) { f(c) }

type retrieverConfig struct {
	client Client

	region         string
	profile        string
	endpointURL    string
	connectTimeout time.Duration
	readTimeout    time.Duration

	config    *retrieval.RetrievalConfig
	configMap map[string]any

	minScore    float64
	skipInvalid bool

	logger *zap.Logger
}

// WithClient injects a retrieval client, replacing the default AWS-backed
// one. Region, profile, endpoint and timeout options are ignored when set.
func WithClient(client Client) Option {
	return optionFunc(func(c *retrieverConfig) {
		c.client = client
	})
}

// WithRegion sets the service region for the default client.
func WithRegion(region string) Option {
	return optionFunc(func(c *retrieverConfig) {
		c.region = region
	})
}

// WithProfile selects a shared-config credentials profile for the default
// client.
func WithProfile(profile string) Option {
	return optionFunc(func(c *retrieverConfig) {
		c.profile = profile
	})
}

// WithEndpoint overrides the service endpoint URL for the default client.
func WithEndpoint(endpointURL string) Option {
	return optionFunc(func(c *retrieverConfig) {
		c.endpointURL = endpointURL
	})
}

// WithTimeouts sets the connect and read timeouts for the default client.
// Zero values keep the defaults (120s each).
func WithTimeouts(connect, read time.Duration) Option {
	return optionFunc(func(c *retrieverConfig) {
		c.connectTimeout = connect
		c.readTimeout = read
	})
}

// WithRetrievalConfig sets the typed retrieval configuration sent with
// every query.
func WithRetrievalConfig(cfg retrieval.RetrievalConfig) Option {
	return optionFunc(func(c *retrieverConfig) {
		c.config = &cfg
	})
}

// WithRetrievalConfigMap sets the retrieval configuration from a
// wire-shaped map, preserving keys the typed configuration does not model.
// Mutually exclusive with WithRetrievalConfig.
func WithRetrievalConfigMap(m map[string]any) Option {
	return optionFunc(func(c *retrieverConfig) {
		c.configMap = m
	})
}

// WithMinScoreConfidence drops results scoring below the threshold.
// Must be between 0 and 1; 0 (the default) disables filtering.
func WithMinScoreConfidence(minScore float64) Option {
	return optionFunc(func(c *retrieverConfig) {
		c.minScore = minScore
	})
}

// WithSkipInvalidResults logs and skips malformed results instead of
// failing the whole page.
func WithSkipInvalidResults() Option {
	return optionFunc(func(c *retrieverConfig) {
		c.skipInvalid = true
	})
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(c *retrieverConfig) {
		c.logger = logger
	})
}
