package trigger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mbaleeiro/chatvine/pkg/domain"
)

// StartSweeper runs a background housekeeping loop deleting expired session
// records. Correctness never depends on it: expiry is checked lazily on
// every message. The sweep only keeps the store small. It stops when the
// context is canceled.
func (e *Engine) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.sweep(ctx)
			}
		}
	}()
}

func (e *Engine) sweep(ctx context.Context) {
	keys, err := e.sessions.List(ctx)
	if err != nil {
		e.logger.Warn("session sweep: list failed", "err", err)
		return
	}

	now := e.now()
	for _, key := range keys {
		contactID, flowID, ok := splitSessionKey(key)
		if !ok {
			continue
		}
		err := e.sessions.WithLock(ctx, key, func(ctx context.Context) error {
			sess, err := e.sessions.Store().Get(ctx, contactID, flowID)
			if errors.Is(err, domain.ErrSessionNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if sess.Expired(now) {
				return e.sessions.Store().Delete(ctx, contactID, flowID)
			}
			return nil
		})
		if err != nil {
			e.logger.Warn("session sweep: cleanup failed", "session_key", key, "err", err)
		}
	}
}

// splitSessionKey inverts domain.SessionKey. Flow ids may not contain a
// colon (flow.Validate rejects them), so the split happens at the last one.
func splitSessionKey(key string) (contactID, flowID string, ok bool) {
	idx := strings.LastIndex(key, ":")
	if idx <= 0 || idx == len(key)-1 {
		return "", "", false
	}
	return key[:idx], key[idx+1:], true
}
