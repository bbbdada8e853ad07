package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"clickloop/internal/domain"
)

// Store implements domain.LinkStore, domain.SettingsStore and domain.LogSink
// on top of a KV backend.
type Store struct {
	kv    KV
	logMu sync.Mutex // serializes read-modify-write of the log value
}

var (
	_ domain.LinkStore     = (*Store)(nil)
	_ domain.SettingsStore = (*Store)(nil)
	_ domain.LogSink       = (*Store)(nil)
)

// New wraps kv.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// Open opens the configured backend and wraps it.
func Open(opts Options) (*Store, error) {
	kv, err := OpenKV(opts)
	if err != nil {
		return nil, err
	}
	return New(kv), nil
}

// Close releases the backend.
func (s *Store) Close() error { return s.kv.Close() }

func (s *Store) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrStore, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: decode %s: %w", domain.ErrStore, key, err)
	}
	return true, nil
}

func (s *Store) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return domain.WrapOp("marshal", err)
	}
	if err := s.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStore, err)
	}
	return nil
}

// LoadLinks returns the stored links in list order; empty when none are stored.
func (s *Store) LoadLinks(ctx context.Context) ([]domain.Link, error) {
	var links []domain.Link
	if _, err := s.getJSON(ctx, KeyLinks, &links); err != nil {
		return nil, err
	}
	if links == nil {
		links = []domain.Link{}
	}
	return links, nil
}

func (s *Store) SaveLinks(ctx context.Context, links []domain.Link) error {
	if links == nil {
		links = []domain.Link{}
	}
	return s.putJSON(ctx, KeyLinks, links)
}

// LoadSettings returns the stored settings, with defaults for missing fields.
func (s *Store) LoadSettings(ctx context.Context) (domain.Settings, error) {
	settings := domain.DefaultSettings()
	if _, err := s.getJSON(ctx, KeySettings, &settings); err != nil {
		return domain.Settings{}, err
	}
	if settings.Mode == "" {
		settings.Mode = domain.ModeSequential
	}
	return settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings domain.Settings) error {
	return s.putJSON(ctx, KeySettings, settings)
}

// Append adds entry at the front of the log and drops entries beyond MaxLogEntries.
func (s *Store) Append(ctx context.Context, entry domain.LogEntry) error {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	var entries []domain.LogEntry
	if _, err := s.getJSON(ctx, KeyLogs, &entries); err != nil {
		return err
	}
	entries = append([]domain.LogEntry{entry}, entries...)
	if len(entries) > domain.MaxLogEntries {
		entries = entries[:domain.MaxLogEntries]
	}
	return s.putJSON(ctx, KeyLogs, entries)
}

// List returns the log, newest first.
func (s *Store) List(ctx context.Context) ([]domain.LogEntry, error) {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	var entries []domain.LogEntry
	if _, err := s.getJSON(ctx, KeyLogs, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.LogEntry{}
	}
	return entries, nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	if err := s.kv.Delete(ctx, KeyLogs); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStore, err)
	}
	return nil
}

// ExportFileName is the download name for a log export taken at t.
func ExportFileName(t time.Time) string {
	return fmt.Sprintf("clickloop-logs-%d.json", t.UnixMilli())
}

// ExportLogs writes the full log as indented JSON.
func ExportLogs(ctx context.Context, sink domain.LogSink, w io.Writer) error {
	entries, err := sink.List(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return domain.WrapOp("export logs", err)
	}
	_, err = w.Write(data)
	return err
}
