package graph

import "context"

// StepListener is notified after each superstep, once the state has been
// merged. Checkpointing and streaming are built on this hook.
type StepListener func(ctx context.Context, nodeName string, state State)

// Config carries per-invocation settings.
type Config struct {
	// Configurable holds free-form invocation values; "thread_id"
	// identifies the conversation thread for checkpointing.
	Configurable map[string]any

	// InterruptBefore pauses execution before any of these nodes run.
	InterruptBefore []string

	// InterruptAfter pauses execution after any of these nodes ran.
	InterruptAfter []string

	// ResumeFrom restarts execution at these nodes instead of the entry
	// point.
	ResumeFrom []string

	// ResumeValue is handed to the Interrupt call inside a resumed node.
	ResumeValue any

	// OnStep listeners observe merged state after each superstep.
	OnStep []StepListener

	// MaxSteps bounds the number of supersteps; 0 means the default.
	MaxSteps int
}

// ThreadID returns the thread id from Configurable, or "".
func (c *Config) ThreadID() string {
	if c == nil || c.Configurable == nil {
		return ""
	}
	tid, _ := c.Configurable["thread_id"].(string)
	return tid
}

// WithThreadID builds a Config carrying the given thread id.
func WithThreadID(threadID string) *Config {
	return &Config{
		Configurable: map[string]any{"thread_id": threadID},
	}
}

// WithInterruptBefore builds a Config pausing before the given nodes.
func WithInterruptBefore(nodes ...string) *Config {
	return &Config{InterruptBefore: nodes}
}

// WithInterruptAfter builds a Config pausing after the given nodes.
func WithInterruptAfter(nodes ...string) *Config {
	return &Config{InterruptAfter: nodes}
}

type resumeValueKey struct{}

// WithResumeValue stores a resume value on the context; Interrupt returns it
// when the interrupted node re-executes.
func WithResumeValue(ctx context.Context, value any) context.Context {
	return context.WithValue(ctx, resumeValueKey{}, value)
}

// ResumeValue retrieves the resume value from the context, or nil.
func ResumeValue(ctx context.Context) any {
	return ctx.Value(resumeValueKey{})
}

type configKey struct{}

// WithConfig stores the invocation config on the context so nodes can read
// Configurable values.
func WithConfig(ctx context.Context, config *Config) context.Context {
	return context.WithValue(ctx, configKey{}, config)
}

// ConfigFromContext retrieves the invocation config, or nil.
func ConfigFromContext(ctx context.Context) *Config {
	config, _ := ctx.Value(configKey{}).(*Config)
	return config
}
