package logging

import "context"

type contextKey string

const (
	cycleKey   contextKey = "cycle"
	commandKey contextKey = "command"
)

// WithCycle adds the poll cycle number to the context.
func WithCycle(ctx context.Context, cycle uint64) context.Context {
	return context.WithValue(ctx, cycleKey, cycle)
}

// WithCommand adds the CLI command name to the context.
func WithCommand(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, commandKey, name)
}

// GetCycle retrieves the poll cycle number from the context.
// The second return value is false if no cycle is present.
func GetCycle(ctx context.Context) (uint64, bool) {
	cycle, ok := ctx.Value(cycleKey).(uint64)
	return cycle, ok
}

// GetCommand retrieves the CLI command name from the context.
// Returns empty string if not present.
func GetCommand(ctx context.Context) string {
	if name, ok := ctx.Value(commandKey).(string); ok {
		return name
	}
	return ""
}
