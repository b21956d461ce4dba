package service

import (
	"context"
	"time"
)

// RunSessionSweeper deletes expired sessions every interval until ctx is done.
// Expired rows are already rejected by ResolveSession; the sweep only keeps the
// table from growing. A non-positive interval disables it.
func (s *AuthService) RunSessionSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpiredSessions(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.ErrorContext(ctx, "session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.log.InfoContext(ctx, "expired sessions purged", "count", n)
			}
		}
	}
}
