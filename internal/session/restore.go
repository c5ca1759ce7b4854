package session

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"xrdisplay/internal/kms"
	"xrdisplay/internal/logging"
	"xrdisplay/internal/store"
)

// Restore resets every override the history still marks active and releases
// the rows. Overrides whose debugfs file is gone are released as well, since
// the connector no longer carries them. It returns the number released.
func Restore(ctx context.Context, st *store.Store, writer *kms.Writer, logger *slog.Logger) (int, error) {
	logger = logging.NewComponentLogger(logger, "restore")
	active, err := st.Active(ctx)
	if err != nil {
		return 0, err
	}

	released := 0
	var errs []error
	for _, o := range active {
		cardIndex := strconv.Itoa(o.CardIndex)
		err := writer.Reset(cardIndex, o.Connector)
		switch {
		case err == nil:
		case errors.Is(err, kms.ErrOverrideUnavailable):
			logger.Info("stale override target gone; releasing record",
				logging.String(logging.FieldEventType, "stale_override_gone"),
				logging.String(logging.FieldCard, cardIndex),
				logging.String(logging.FieldConnector, o.Connector),
			)
		default:
			logging.WarnWithContext(logger, "stale override reset failed", "stale_override_reset_failed",
				logging.String(logging.FieldCard, cardIndex),
				logging.String(logging.FieldConnector, o.Connector),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run as root with debugfs mounted, then run xrdisplay restore"),
				logging.String(logging.FieldImpact, "the connector keeps reporting the patched EDID"),
			)
			errs = append(errs, err)
			continue
		}
		if err := st.MarkReleased(ctx, o.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		released++
		logger.Info("stale override restored",
			logging.String(logging.FieldEventType, "stale_override_restored"),
			logging.String(logging.FieldVendor, o.Vendor),
			logging.String(logging.FieldConnector, o.Connector),
			logging.String("previous_run_id", o.RunID),
		)
	}
	return released, errors.Join(errs...)
}
