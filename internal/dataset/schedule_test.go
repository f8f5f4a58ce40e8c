package dataset

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestStartReloadScheduleRejectsNonPositiveInterval(t *testing.T) {
	if _, err := StartReloadSchedule(context.Background(), &Loader{}, 0, discardLogger()); err == nil {
		t.Fatal("StartReloadSchedule() expected error for zero interval")
	}
}

func TestStartReloadScheduleReloadsPeriodically(t *testing.T) {
	if _, err := os.Stat(fixturePath); err != nil {
		t.Fatalf("fixture missing: %v", err)
	}
	orders := &recordingOrders{}
	loader := &Loader{Orders: orders, Config: Config{CSVPath: fixturePath}, Logger: discardLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler, err := StartReloadSchedule(ctx, loader, 50*time.Millisecond, discardLogger())
	if err != nil {
		t.Fatalf("StartReloadSchedule() error = %v", err)
	}
	defer scheduler.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		orders.mu.Lock()
		calls := orders.calls
		orders.mu.Unlock()
		if calls > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scheduled reload never ran")
}
