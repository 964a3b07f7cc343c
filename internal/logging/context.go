package logging

import (
	"context"
	"log/slog"

	"edgarfeed/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldDay is the feed day (YYYYMMDD) being downloaded or indexed.
	FieldDay = "day"
	// FieldFile is the submission file being parsed.
	FieldFile = "file"
	// FieldAccession is the accession number of the submission being handled.
	FieldAccession = "accession"
	// FieldSlot is the worker or download slot index.
	FieldSlot = "slot"
	// FieldCorrelationID is the standardized structured logging key for run and job identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType names the event a warning or error reports, for log queries.
	FieldEventType = "event_type"
	// FieldErrorHint tells an operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldErrorCategory is the services.Category of a logged error.
	FieldErrorCategory = "error_category"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 5)
	if day, ok := services.DayFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldDay, day))
	}
	if file, ok := services.FileFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldFile, file))
	}
	if accession, ok := services.AccessionFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldAccession, accession))
	}
	if slot, ok := services.SlotFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldSlot, slot))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}

// ErrorAttrs returns the error together with its taxonomy category.
func ErrorAttrs(err error) []Attr {
	return []Attr{Error(err), String(FieldErrorCategory, services.Category(err))}
}
