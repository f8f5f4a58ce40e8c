// Package seed generates synthetic sales CSV files for demos and local testing.
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/salesquery/salesquery/internal/sales"
	"github.com/salesquery/salesquery/internal/storage"
)

type Service struct {
	cfg       Config
	log       *slog.Logger
	http      *http.Client
	store     storage.ObjectStore
	generator *Generator
}

type Result struct {
	Rows       int    `json:"rows"`
	Orders     int    `json:"orders"`
	Bytes      int    `json:"bytes"`
	OutputPath string `json:"output_path,omitempty"`
	ObjectKey  string `json:"object_key,omitempty"`
	Reloaded   bool   `json:"reloaded"`
}

// NewService builds a seeder. store may be nil when ObjectKey is empty.
func NewService(cfg Config, logger *slog.Logger, store storage.ObjectStore, client *http.Client) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ObjectKey != "" && store == nil {
		return nil, fmt.Errorf("object store is required to upload %q", cfg.ObjectKey)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Service{
		cfg:       cfg,
		log:       logger,
		http:      client,
		store:     store,
		generator: NewGenerator(cfg.Seed, cfg.Customers, cfg.StartDate, cfg.EndDate),
	}, nil
}

func (s *Service) Run(ctx context.Context) (Result, error) {
	orders := s.generator.Generate(s.cfg.Rows)
	var buf bytes.Buffer
	if err := sales.WriteCSV(&buf, orders); err != nil {
		return Result{}, err
	}

	result := Result{Rows: len(orders), Orders: countOrders(orders), Bytes: buf.Len()}
	if s.cfg.OutputPath != "" {
		if err := writeFile(s.cfg.OutputPath, buf.Bytes()); err != nil {
			return Result{}, err
		}
		result.OutputPath = s.cfg.OutputPath
	}
	if s.cfg.ObjectKey != "" {
		if _, err := s.store.Put(ctx, s.cfg.ObjectKey, bytes.NewReader(buf.Bytes()), int64(buf.Len()), storage.PutOptions{ContentType: storage.ContentTypeCSV}); err != nil {
			return Result{}, fmt.Errorf("upload seed csv: %w", err)
		}
		result.ObjectKey = s.cfg.ObjectKey
	}

	s.log.Info("generated sales seed",
		slog.Int("rows", result.Rows),
		slog.Int("orders", result.Orders),
		slog.Int("bytes", result.Bytes),
		slog.String("output_path", result.OutputPath),
		slog.String("object_key", result.ObjectKey),
		slog.Int64("seed", s.cfg.Seed),
	)

	if s.cfg.TriggerReload {
		if err := s.triggerReload(ctx); err != nil {
			return result, err
		}
		result.Reloaded = true
	}
	return result, nil
}

func (s *Service) triggerReload(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIBaseURL+"/v1/dataset/reload", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("reload request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read reload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reload request status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var summary struct {
		Rows   int    `json:"rows"`
		Source string `json:"source"`
	}
	if err := json.Unmarshal(body, &summary); err != nil {
		return fmt.Errorf("decode reload response: %w", err)
	}
	s.log.Info("api reloaded dataset", slog.Int("rows", summary.Rows), slog.String("source", summary.Source))
	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write seed csv: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace seed csv: %w", err)
	}
	return nil
}

func countOrders(orders []sales.Order) int {
	seen := make(map[int64]struct{})
	for _, order := range orders {
		seen[order.OrderNumber] = struct{}{}
	}
	return len(seen)
}
