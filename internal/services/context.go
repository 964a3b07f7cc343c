package services

import "context"

type contextKey string

const (
	dayKey       contextKey = "day"
	fileKey      contextKey = "file"
	accessionKey contextKey = "accession"
	slotKey      contextKey = "slot"
	requestIDKey contextKey = "request_id"
)

// WithDay annotates context with the feed day (YYYYMMDD).
func WithDay(ctx context.Context, day string) context.Context {
	if day == "" {
		return ctx
	}
	return context.WithValue(ctx, dayKey, day)
}

// DayFromContext returns the feed day if present.
func DayFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, dayKey)
}

// WithFile annotates context with the submission file path.
func WithFile(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, fileKey, path)
}

// FileFromContext returns the submission file path if present.
func FileFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, fileKey)
}

// WithAccession annotates context with the accession number.
func WithAccession(ctx context.Context, accession string) context.Context {
	if accession == "" {
		return ctx
	}
	return context.WithValue(ctx, accessionKey, accession)
}

// AccessionFromContext returns the accession number if present.
func AccessionFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, accessionKey)
}

// WithSlot annotates context with a worker or download slot index.
func WithSlot(ctx context.Context, slot int) context.Context {
	return context.WithValue(ctx, slotKey, slot)
}

// SlotFromContext returns the slot index if present.
func SlotFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(slotKey).(int)
	return v, ok
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, requestIDKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
