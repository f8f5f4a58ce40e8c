package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// StartReloadSchedule reloads the dataset every interval until ctx is done.
// The first run happens one interval after start.
func StartReloadSchedule(ctx context.Context, loader *Loader, interval time.Duration, logger *slog.Logger) (*gocron.Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("reload interval must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()
	if _, err := scheduler.Every(interval).WaitForSchedule().Do(func() {
		if _, err := loader.Reload(ctx); err != nil {
			logger.ErrorContext(ctx, "scheduled dataset reload failed", slog.Any("error", err))
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule dataset reload: %w", err)
	}
	scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		scheduler.Stop()
	}()
	return scheduler, nil
}
