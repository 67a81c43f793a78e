package tabguard

import "context"

type windowLabelContextKey struct{}

// WithWindowLabel attaches a human-readable label for the calling window or
// surface to ctx. The engine copies it into audit event metadata, which is
// useful when several engine instances share one store.
func WithWindowLabel(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, windowLabelContextKey{}, label)
}

func windowLabelFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	label, _ := ctx.Value(windowLabelContextKey{}).(string)
	return label
}
