// Package export ships persisted audit log records to external destinations
// such as a SIEM webhook or an append-only file. Export is strictly
// best-effort and runs off the request path: the database row is the record
// of truth, and a destination being down never fails a create. Multiple
// simultaneous destinations are supported through the Shipper interface.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/audittrail/audittrail/internal/db/models"
	"github.com/audittrail/audittrail/internal/telemetry"
)

// Entry is the wire form of an exported audit log record. It carries the
// stored identifiers rather than resolved reference names so a destination
// receives the same entry regardless of later edits to the reference tables.
type Entry struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	OrganizationID int64     `json:"organization_id"`
	FacilityID     *int64    `json:"facility_id,omitempty"`
	UserID         int64     `json:"user_id"`
	UserRoles      []string  `json:"user_roles,omitempty"`
	Method         string    `json:"method"`
	URL            string    `json:"url"`
	CategoryID     *string   `json:"category_id,omitempty"`
	SubCategoryID  *string   `json:"sub_category_id,omitempty"`
	ActionTypeID   *string   `json:"action_type_id,omitempty"`
}

// EntryFromRecord projects a stored audit log into its export form.
func EntryFromRecord(l *models.AuditLog) *Entry {
	return &Entry{
		ID:             l.ID,
		Timestamp:      l.CreatedAt,
		OrganizationID: l.OrganizationID,
		FacilityID:     l.FacilityID,
		UserID:         l.UserID,
		UserRoles:      l.UserRoles,
		Method:         l.Method,
		URL:            l.URL,
		CategoryID:     l.CategoryID,
		SubCategoryID:  l.SubCategoryID,
		ActionTypeID:   l.ActionTypeID,
	}
}

// Shipper sends audit entries to one destination.
type Shipper interface {
	Ship(ctx context.Context, entry *Entry) error
	Close() error
}

// DestinationConfig selects and configures one export destination.
type DestinationConfig struct {
	Enabled bool           `json:"enabled" mapstructure:"enabled"`
	Type    string         `json:"type" mapstructure:"type"`
	Webhook *WebhookConfig `json:"webhook,omitempty" mapstructure:"webhook"`
	File    *FileConfig    `json:"file,omitempty" mapstructure:"file"`
}

// WebhookConfig configures a webhook destination.
type WebhookConfig struct {
	URL           string            `json:"url" mapstructure:"url"`
	Headers       map[string]string `json:"headers,omitempty" mapstructure:"headers"`
	Timeout       time.Duration     `json:"timeout" mapstructure:"timeout"`
	BatchSize     int               `json:"batch_size" mapstructure:"batch_size"`
	FlushInterval time.Duration     `json:"flush_interval" mapstructure:"flush_interval"`
}

// FileConfig configures an append-only file destination.
type FileConfig struct {
	Path       string `json:"path" mapstructure:"path"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
}

// NopShipper discards every entry. Used when no destination is configured.
type NopShipper struct{}

// Ship implements Shipper.
func (NopShipper) Ship(context.Context, *Entry) error { return nil }

// Close implements Shipper.
func (NopShipper) Close() error { return nil }

// MultiShipper fans one entry out to every enabled destination. A failing
// destination is counted and logged but does not stop delivery to the others.
type MultiShipper struct {
	shippers []Shipper
	mu       sync.RWMutex
}

// NewMultiShipper builds a shipper per enabled destination config.
func NewMultiShipper(configs []DestinationConfig) (*MultiShipper, error) {
	ms := &MultiShipper{shippers: make([]Shipper, 0, len(configs))}

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		var shipper Shipper
		var err error

		switch cfg.Type {
		case "webhook":
			if cfg.Webhook == nil {
				return nil, fmt.Errorf("webhook config is required for webhook destination")
			}
			shipper, err = NewWebhookShipper(cfg.Webhook)
		case "file":
			if cfg.File == nil {
				return nil, fmt.Errorf("file config is required for file destination")
			}
			shipper, err = NewFileShipper(cfg.File)
		default:
			return nil, fmt.Errorf("unknown export destination type: %s", cfg.Type)
		}

		if err != nil {
			return nil, fmt.Errorf("failed to create %s destination: %w", cfg.Type, err)
		}

		ms.shippers = append(ms.shippers, shipper)
	}

	return ms, nil
}

// Ship sends an entry to all destinations and returns the last failure.
func (ms *MultiShipper) Ship(ctx context.Context, entry *Entry) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var lastErr error
	for _, shipper := range ms.shippers {
		if err := shipper.Ship(ctx, entry); err != nil {
			lastErr = err
			slog.Warn("audit export destination failed", "error", err)
		}
	}
	return lastErr
}

// Close closes all destinations.
func (ms *MultiShipper) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var lastErr error
	for _, shipper := range ms.shippers {
		if err := shipper.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// WebhookShipper POSTs entries to an HTTP endpoint, optionally batched.
type WebhookShipper struct {
	cfg       *WebhookConfig
	client    *http.Client
	batchCh   chan *Entry
	batch     []*Entry
	batchMu   sync.Mutex
	closeCh   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

// NewWebhookShipper creates a webhook shipper. When BatchSize is positive a
// background goroutine collects entries and flushes them as a JSON array.
func NewWebhookShipper(cfg *WebhookConfig) (*WebhookShipper, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	ws := &WebhookShipper{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		batchCh: make(chan *Entry, 1000),
		batch:   make([]*Entry, 0),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}

	if cfg.BatchSize > 0 {
		go ws.processBatches()
	}

	return ws, nil
}

func (ws *WebhookShipper) processBatches() {
	defer close(ws.done)

	flushInterval := ws.cfg.FlushInterval
	if flushInterval == 0 {
		flushInterval = 5 * time.Second
	}

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-ws.batchCh:
			ws.batchMu.Lock()
			ws.batch = append(ws.batch, entry)
			if len(ws.batch) >= ws.cfg.BatchSize {
				ws.flushBatch()
			}
			ws.batchMu.Unlock()
		case <-ticker.C:
			ws.batchMu.Lock()
			if len(ws.batch) > 0 {
				ws.flushBatch()
			}
			ws.batchMu.Unlock()
		case <-ws.closeCh:
			// Entries still queued in batchCh would otherwise be lost.
			ws.batchMu.Lock()
			for draining := true; draining; {
				select {
				case entry := <-ws.batchCh:
					ws.batch = append(ws.batch, entry)
				default:
					draining = false
				}
			}
			ws.flushBatch()
			ws.batchMu.Unlock()
			return
		}
	}
}

// flushBatch sends the current batch. Caller holds batchMu.
func (ws *WebhookShipper) flushBatch() {
	if len(ws.batch) == 0 {
		return
	}

	data, err := json.Marshal(ws.batch)
	if err != nil {
		slog.Error("failed to marshal audit export batch", "error", err)
		ws.batch = ws.batch[:0]
		return
	}
	sent := len(ws.batch)

	timeout := ws.cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := ws.sendRequest(ctx, data); err != nil {
		telemetry.AuditShipErrorsTotal.WithLabelValues("webhook").Inc()
		slog.Warn("failed to send audit export batch", "entries", sent, "error", err)
	} else {
		telemetry.AuditLogsShippedTotal.WithLabelValues("webhook").Add(float64(sent))
	}

	ws.batch = ws.batch[:0]
}

// Ship queues the entry when batching is enabled, otherwise sends it at once.
func (ws *WebhookShipper) Ship(ctx context.Context, entry *Entry) error {
	if ws.cfg.BatchSize > 0 {
		select {
		case ws.batchCh <- entry:
			return nil
		default:
			// Queue full, fall through to a direct send.
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	if err := ws.sendRequest(ctx, data); err != nil {
		telemetry.AuditShipErrorsTotal.WithLabelValues("webhook").Inc()
		return err
	}
	telemetry.AuditLogsShippedTotal.WithLabelValues("webhook").Inc()
	return nil
}

func (ws *WebhookShipper) sendRequest(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range ws.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := ws.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// Close stops the batch goroutine and blocks until everything queued has been
// drained and flushed.
func (ws *WebhookShipper) Close() error {
	ws.closeOnce.Do(func() {
		close(ws.closeCh)
		if ws.cfg.BatchSize > 0 {
			<-ws.done
		}
	})
	return nil
}

// FileShipper appends one JSON line per entry to a local file, rotating when
// the file exceeds the configured size.
type FileShipper struct {
	cfg  *FileConfig
	file *os.File
	mu   sync.Mutex
}

// NewFileShipper opens (or creates) the destination file in append mode.
func NewFileShipper(cfg *FileConfig) (*FileShipper, error) {
	file, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit export file: %w", err)
	}

	return &FileShipper{cfg: cfg, file: file}, nil
}

// Ship writes the entry as one JSON line.
func (fs *FileShipper) Ship(ctx context.Context, entry *Entry) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.cfg.MaxSizeMB > 0 {
		info, err := fs.file.Stat()
		if err == nil && info.Size() > int64(fs.cfg.MaxSizeMB)*1024*1024 {
			if err := fs.rotate(); err != nil {
				slog.Warn("failed to rotate audit export file", "error", err)
			}
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	if _, err := fs.file.Write(append(data, '\n')); err != nil {
		telemetry.AuditShipErrorsTotal.WithLabelValues("file").Inc()
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	telemetry.AuditLogsShippedTotal.WithLabelValues("file").Inc()
	return nil
}

func (fs *FileShipper) rotate() error {
	if err := fs.file.Close(); err != nil {
		return err
	}

	for i := fs.cfg.MaxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", fs.cfg.Path, i)
		newPath := fmt.Sprintf("%s.%d", fs.cfg.Path, i+1)
		_ = os.Rename(oldPath, newPath)
	}

	_ = os.Rename(fs.cfg.Path, fs.cfg.Path+".1")

	if fs.cfg.MaxBackups > 0 {
		_ = os.Remove(fmt.Sprintf("%s.%d", fs.cfg.Path, fs.cfg.MaxBackups+1))
	}

	file, err := os.OpenFile(fs.cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	fs.file = file
	return nil
}

// Close closes the file.
func (fs *FileShipper) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.file.Close()
}
