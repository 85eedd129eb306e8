package runlog

import (
	"context"
	"log/slog"

	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/ports"
)

// Multi persists to a primary logger and copies to best-effort mirrors.
// Only the primary's failure is returned.
type Multi struct {
	primary ports.RunLogger
	mirrors []ports.RunLogger
	logger  *slog.Logger
}

var _ ports.RunLogger = (*Multi)(nil)

func NewMulti(logger *slog.Logger, primary ports.RunLogger, mirrors ...ports.RunLogger) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multi{primary: primary, mirrors: mirrors, logger: logger}
}

func (m *Multi) Log(ctx context.Context, record domain.RunRecord) (string, error) {
	location, err := m.primary.Log(ctx, record)
	if err != nil {
		return "", err
	}
	for _, mirror := range m.mirrors {
		if where, err := mirror.Log(ctx, record); err != nil {
			m.logger.Warn("run record mirror failed", "run", record.ID, "error", err)
		} else {
			m.logger.Debug("run record mirrored", "run", record.ID, "location", where)
		}
	}
	return location, nil
}
