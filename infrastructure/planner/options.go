package planner

// Search limits.
const (
	// DefaultMaxIterations bounds the number of nodes popped in one search.
	DefaultMaxIterations = 10000

	// DefaultMaxDepth bounds the number of tasks along any branch.
	DefaultMaxDepth = 16
)

// Config configures the forward search.
type Config struct {
	// MaxIterations is the soft ceiling on popped nodes. Reaching it ends the
	// search with whatever leaves were already found.
	MaxIterations int

	// MaxDepth discards branches whose depth reaches it.
	MaxDepth int

	// DepthFromTasks uses the number of available tasks as the depth ceiling
	// instead of MaxDepth.
	DepthFromTasks bool
}

// DefaultConfig returns the standard limits.
func DefaultConfig() Config {
	return Config{
		MaxIterations: DefaultMaxIterations,
		MaxDepth:      DefaultMaxDepth,
	}
}

// Option configures the search.
type Option func(*Config)

// WithMaxIterations sets the iteration ceiling.
func WithMaxIterations(n int) Option {
	return func(c *Config) {
		c.MaxIterations = n
	}
}

// WithMaxDepth sets a fixed depth ceiling.
func WithMaxDepth(n int) Option {
	return func(c *Config) {
		c.MaxDepth = n
		c.DepthFromTasks = false
	}
}

// WithDepthFromTasks bounds depth by the number of available tasks.
func WithDepthFromTasks() Option {
	return func(c *Config) {
		c.DepthFromTasks = true
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

func (c Config) normalized() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	return c
}

func (c Config) depthLimit(taskCount int) int {
	if c.DepthFromTasks {
		return taskCount
	}
	return c.MaxDepth
}
