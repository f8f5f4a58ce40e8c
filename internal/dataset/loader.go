// Package dataset loads the sales CSV into the orders table and publishes the
// Parquet snapshot the dataframe engine reads.
package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/salesquery/salesquery/internal/observability"
	"github.com/salesquery/salesquery/internal/sales"
	"github.com/salesquery/salesquery/internal/storage"
)

var ErrNoSource = errors.New("no dataset source configured")

// ErrSnapshotStale means the orders table holds the new dataset but the
// dataframe snapshot still holds the previous one.
var ErrSnapshotStale = errors.New("orders table replaced but snapshot not published")

// OrdersWriter replaces the relational copy of the dataset.
type OrdersWriter interface {
	ReplaceOrders(ctx context.Context, orders []sales.Order) (int64, error)
}

type Config struct {
	// CSVPath is read when CSVObjectKey is empty.
	CSVPath      string
	CSVObjectKey string
	SnapshotName string
}

type Summary struct {
	Source        string    `json:"source"`
	Rows          int64     `json:"rows"`
	SnapshotKey   string    `json:"snapshot_key"`
	SnapshotBytes int64     `json:"snapshot_bytes"`
	MinOrderDate  string    `json:"min_order_date,omitempty"`
	MaxOrderDate  string    `json:"max_order_date,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
	LoadedAt      time.Time `json:"loaded_at"`
}

type Loader struct {
	Orders      OrdersWriter
	ObjectStore storage.ObjectStore
	Config      Config
	Logger      *slog.Logger
	Clock       func() time.Time

	mu sync.Mutex
}

func (l *Loader) ensureDefaults() {
	if l.Clock == nil {
		l.Clock = time.Now
	}
	if l.Logger == nil {
		l.Logger = slog.Default()
	}
	if strings.TrimSpace(l.Config.SnapshotName) == "" {
		l.Config.SnapshotName = sales.TableName
	}
}

// SnapshotKey is the object key the Parquet snapshot is published under.
func (l *Loader) SnapshotKey() (string, error) {
	l.ensureDefaults()
	return storage.DatasetSnapshotKey(l.Config.SnapshotName)
}

// Reload loads from the configured object key, or from the CSV path when no
// key is set.
func (l *Loader) Reload(ctx context.Context) (Summary, error) {
	switch {
	case strings.TrimSpace(l.Config.CSVObjectKey) != "":
		return l.LoadObject(ctx, l.Config.CSVObjectKey)
	case strings.TrimSpace(l.Config.CSVPath) != "":
		return l.LoadFile(ctx, l.Config.CSVPath)
	default:
		return Summary{}, ErrNoSource
	}
}

func (l *Loader) LoadFile(ctx context.Context, path string) (Summary, error) {
	file, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open dataset csv: %w", err)
	}
	defer func() { _ = file.Close() }()
	return l.Load(ctx, file, path)
}

func (l *Loader) LoadObject(ctx context.Context, key string) (Summary, error) {
	if l.ObjectStore == nil {
		return Summary{}, fmt.Errorf("object store is required to load %q", key)
	}
	reader, err := l.ObjectStore.Get(ctx, key)
	if err != nil {
		return Summary{}, fmt.Errorf("get dataset object %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()
	return l.Load(ctx, reader, "object:"+key)
}

// Load parses CSV from reader, replaces the orders table and publishes a new
// snapshot. Concurrent loads run one at a time.
func (l *Loader) Load(ctx context.Context, reader io.Reader, source string) (Summary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureDefaults()

	start := l.Clock()
	summary, err := l.load(ctx, reader, source)
	elapsed := l.Clock().Sub(start)
	observability.ObserveDatasetLoad(summary.Rows, err, elapsed)
	if err != nil {
		l.Logger.ErrorContext(ctx, "dataset load failed", slog.String("source", source), slog.Any("error", err))
		return Summary{}, err
	}

	summary.DurationMs = elapsed.Milliseconds()
	summary.LoadedAt = start.UTC()
	l.Logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", source),
		slog.Int64("rows", summary.Rows),
		slog.String("snapshot_key", summary.SnapshotKey),
		slog.Int64("snapshot_bytes", summary.SnapshotBytes),
		slog.Duration("duration", elapsed),
	)
	return summary, nil
}

func (l *Loader) load(ctx context.Context, reader io.Reader, source string) (Summary, error) {
	if l.Orders == nil {
		return Summary{}, fmt.Errorf("orders repository is required")
	}
	orders, err := sales.ParseCSV(reader)
	if err != nil {
		return Summary{}, fmt.Errorf("parse %s: %w", source, err)
	}
	if len(orders) == 0 {
		return Summary{}, fmt.Errorf("parse %s: no order rows", source)
	}

	// Encode before touching the table so a bad snapshot leaves both sides alone.
	var encoded sales.ParquetEncodeResult
	var key string
	if l.ObjectStore != nil {
		encoded, err = sales.EncodeParquet(orders)
		if err != nil {
			return Summary{}, fmt.Errorf("encode snapshot: %w", err)
		}
		key, err = storage.DatasetSnapshotKey(l.Config.SnapshotName)
		if err != nil {
			return Summary{}, fmt.Errorf("build snapshot key: %w", err)
		}
	}

	rows, err := l.Orders.ReplaceOrders(ctx, orders)
	if err != nil {
		return Summary{}, fmt.Errorf("replace orders: %w", err)
	}
	summary := Summary{Source: source, Rows: rows}

	if l.ObjectStore == nil {
		return summary, nil
	}
	info, err := l.ObjectStore.Put(ctx, key, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{ContentType: storage.ContentTypeParquet})
	if err != nil {
		return Summary{}, fmt.Errorf("%w: put %s: %w", ErrSnapshotStale, key, err)
	}

	summary.SnapshotKey = key
	summary.SnapshotBytes = info.Size
	summary.MinOrderDate = encoded.MinDate
	summary.MaxOrderDate = encoded.MaxDate
	return summary, nil
}
