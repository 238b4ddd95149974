package workers

import (
	"context"
	"log"
	"time"

	"eventbook-backend/internal/storage"
)

// StartResetTokenReaper periodically clears reset-token state that expired
// without being consumed. Expired tokens are already unusable (consumption
// checks the expiry), so this is hygiene, not enforcement.
func StartResetTokenReaper(ctx context.Context, store *storage.Storage) {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reapOnce(ctx, store)
			}
		}
	}()
	log.Println("INFO Reset-token reaper started")
}

func reapOnce(ctx context.Context, store *storage.Storage) {
	n, err := store.DeleteExpiredResetTokens(ctx)
	if err != nil {
		log.Printf("WARN Reset-token reaper error: %v", err)
		return
	}
	if n > 0 {
		log.Printf("INFO Reset-token reaper cleared %d expired tokens", n)
	}
}
