package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldVendor is the standardized key for the glasses manufacturer id (e.g. MRG).
	FieldVendor = "vendor"
	// FieldModel is the standardized key for the glasses model name.
	FieldModel = "model"
	// FieldConnector is the standardized key for DRM connector ids (e.g. DP-1).
	FieldConnector = "connector"
	// FieldCard is the standardized key for DRM card names (e.g. card1).
	FieldCard = "card"
	// FieldRunID is the standardized key for the identifier of a single run.
	FieldRunID = "run_id"
	// FieldEventType is the standardized key for machine-readable event names.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized key for the operator's next step.
	FieldErrorHint = "error_hint"
)

type deviceKey struct{}

type deviceFields struct {
	vendor    string
	connector string
}

// WithDevice returns a context carrying the device identity for log enrichment.
func WithDevice(ctx context.Context, vendor, connector string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, deviceKey{}, deviceFields{vendor: vendor, connector: connector})
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	dev, ok := ctx.Value(deviceKey{}).(deviceFields)
	if !ok {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if dev.vendor != "" {
		fields = append(fields, slog.String(FieldVendor, dev.vendor))
	}
	if dev.connector != "" {
		fields = append(fields, slog.String(FieldConnector, dev.connector))
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
