package workflow

import "time"

// Config holds workflow-wide defaults recognized by the engine (spec §6).
// Per-task RetryCount/TimeoutMs override the corresponding Config default.
type Config struct {
	// MaxRetries is the default retry count used when a task does not
	// specify its own RetryCount.
	MaxRetries int
	// TimeoutMs is the default per-task timeout in milliseconds, used
	// when a task does not specify its own TimeoutMs.
	TimeoutMs int
	// RetryDelayMs is the base delay between retry attempts.
	RetryDelayMs int
	// RetryDelayMultiplier grows the delay between successive attempts:
	// delay(n) = RetryDelayMs * RetryDelayMultiplier^n. A value of 1 keeps
	// the delay constant, a value between 0 and 1 shrinks it, and a value
	// <= 0 is treated as 1.
	RetryDelayMultiplier float64
	// MaxIterations caps loop-pattern iterations in the agent graph layer.
	MaxIterations int
	// Signal, if non-nil, is an external cancellation hook handed to
	// every task as ParamBundle.Signal. The engine does not watch it
	// itself and does not join it with the context passed to
	// Start/Resume: closing it stops only tasks that select on it.
	Signal <-chan struct{}
}

// Option configures a Config via the functional-options pattern.
type Option func(*Config)

// WithMaxRetries sets the engine-wide default retry count.
func WithMaxRetries(n int) Option {
	return func(c *Config) { c.MaxRetries = n }
}

// WithTimeout sets the engine-wide default per-task timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.TimeoutMs = int(d.Milliseconds()) }
}

// WithRetryDelay sets the base retry backoff delay and its growth
// multiplier between successive attempts.
func WithRetryDelay(base time.Duration, multiplier float64) Option {
	return func(c *Config) {
		c.RetryDelayMs = int(base.Milliseconds())
		c.RetryDelayMultiplier = multiplier
	}
}

// WithMaxIterations sets the default cap on agent-graph loop iterations.
func WithMaxIterations(n int) Option {
	return func(c *Config) { c.MaxIterations = n }
}

// WithSignal attaches an external cancellation hook to the config.
func WithSignal(sig <-chan struct{}) Option {
	return func(c *Config) { c.Signal = sig }
}

// NewConfig builds a Config from functional options, starting from the
// teacher-style conservative defaults: one attempt (no retries), no
// timeout, no backoff growth.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		MaxRetries:            0,
		TimeoutMs:             0,
		RetryDelayMs:          0,
		RetryDelayMultiplier:  1,
		MaxIterations:         0,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// retryDelay computes the backoff duration before attempt (0-based retry
// index, i.e. 0 for the first retry after the initial attempt) using
// Config's RetryDelayMs/RetryDelayMultiplier. This is the decision recorded
// in SPEC_FULL.md for the spec's open question about those two fields.
func (c Config) retryDelay(attempt int) time.Duration {
	if c.RetryDelayMs <= 0 {
		return 0
	}
	mult := c.RetryDelayMultiplier
	if mult <= 0 {
		mult = 1
	}
	delay := float64(c.RetryDelayMs)
	for i := 0; i < attempt; i++ {
		delay *= mult
	}
	return time.Duration(delay) * time.Millisecond
}
