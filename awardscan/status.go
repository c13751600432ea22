package awardscan

import (
	"context"
	"log/slog"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/internal/status"
)

// ServeStatus serves /healthz and /progress for p on addr until ctx is done.
func ServeStatus(ctx context.Context, addr string, p *Progress, logger *slog.Logger) error {
	return status.Serve(ctx, addr, p, logger)
}
