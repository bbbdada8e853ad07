package linkset

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"clickloop/internal/domain"
)

// CycleState lets the manager refuse edits while a run is active.
type CycleState interface {
	IsActive() bool
}

// Stores groups the persisted collaborators the manager edits.
type Stores struct {
	Links    domain.LinkStore
	Settings domain.SettingsStore
	Logs     domain.LogSink
}

// Patch contains optional fields for updating a link.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	URL         *string `json:"url,omitempty"`
	IntervalSec *int    `json:"intervalSec,omitempty"`
	Iterations  *int    `json:"iterations,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

// Manager owns link and settings mutations.
type Manager struct {
	stores    Stores
	cycle     CycleState
	titles    domain.TitleLookup
	suggester domain.ContentSuggester
	bus       domain.EventBus
	logger    *slog.Logger
	mu        sync.Mutex

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// NewManager creates a Manager. cycle, titles, suggester and bus may be nil.
func NewManager(stores Stores, cycle CycleState, titles domain.TitleLookup, suggester domain.ContentSuggester, bus domain.EventBus, logger *slog.Logger) *Manager {
	return &Manager{
		stores:    stores,
		cycle:     cycle,
		titles:    titles,
		suggester: suggester,
		bus:       bus,
		logger:    logger,
		entropy:   ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// List returns all links in cycle order.
func (m *Manager) List(ctx context.Context) ([]domain.Link, error) {
	return m.stores.Links.LoadLinks(ctx)
}

// Get returns a single link by ID.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Link, error) {
	links, err := m.stores.Links.LoadLinks(ctx)
	if err != nil {
		return nil, err
	}
	idx := domain.IndexOfLink(links, id)
	if idx < 0 {
		return nil, notFound("linkset.Get", id)
	}
	return &links[idx], nil
}

// Add appends a link. Zero IntervalSec takes the default, an empty title is
// looked up from the page. New links are always enabled.
func (m *Manager) Add(ctx context.Context, link domain.Link) (*domain.Link, error) {
	link.URL = strings.TrimSpace(link.URL)
	link.Title = strings.TrimSpace(link.Title)
	if link.IntervalSec == 0 {
		link.IntervalSec = domain.DefaultIntervalSec
	}
	link.Enabled = true
	if link.Title == "" && domain.ValidateURL(link.URL) == nil {
		link.Title = m.LookupTitle(ctx, link.URL)
	}
	if err := link.Validate(); err != nil {
		return nil, domain.WrapOp("linkset.Add", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	links, err := m.stores.Links.LoadLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("linkset: load: %w", err)
	}
	link.ID = m.newID()
	links = append(links, link)
	if err := m.stores.Links.SaveLinks(ctx, links); err != nil {
		return nil, fmt.Errorf("linkset: save: %w", err)
	}

	m.emitEvent(ctx, domain.EventLinkAdded, link)
	m.logger.Info("link added", "link_id", link.ID, "url", link.URL)
	return &link, nil
}

// Update patches a link. Rejected while a cycle is active.
func (m *Manager) Update(ctx context.Context, id string, patch Patch) (*domain.Link, error) {
	return m.mutate(ctx, "linkset.Update", id, func(l *domain.Link) {
		if patch.Title != nil {
			l.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.URL != nil {
			l.URL = strings.TrimSpace(*patch.URL)
		}
		if patch.IntervalSec != nil {
			l.IntervalSec = *patch.IntervalSec
		}
		if patch.Iterations != nil {
			l.Iterations = *patch.Iterations
		}
		if patch.Enabled != nil {
			l.Enabled = *patch.Enabled
		}
	})
}

// Toggle flips a link's enabled flag. Rejected while a cycle is active.
func (m *Manager) Toggle(ctx context.Context, id string) (*domain.Link, error) {
	return m.mutate(ctx, "linkset.Toggle", id, func(l *domain.Link) {
		l.Enabled = !l.Enabled
	})
}

// Delete removes a link. Rejected while a cycle is active.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkIdle("linkset.Delete"); err != nil {
		return err
	}

	links, err := m.stores.Links.LoadLinks(ctx)
	if err != nil {
		return fmt.Errorf("linkset: load: %w", err)
	}
	idx := domain.IndexOfLink(links, id)
	if idx < 0 {
		return notFound("linkset.Delete", id)
	}
	links = append(links[:idx], links[idx+1:]...)
	if err := m.stores.Links.SaveLinks(ctx, links); err != nil {
		return fmt.Errorf("linkset: save: %w", err)
	}

	m.emitEvent(ctx, domain.EventLinkDeleted, map[string]string{"id": id})
	m.logger.Info("link deleted", "link_id", id)
	return nil
}

func (m *Manager) mutate(ctx context.Context, op, id string, apply func(*domain.Link)) (*domain.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkIdle(op); err != nil {
		return nil, err
	}

	links, err := m.stores.Links.LoadLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("linkset: load: %w", err)
	}
	idx := domain.IndexOfLink(links, id)
	if idx < 0 {
		return nil, notFound(op, id)
	}
	updated := links[idx]
	apply(&updated)
	updated.ID = id
	if err := updated.Validate(); err != nil {
		return nil, domain.WrapOp(op, err)
	}
	links[idx] = updated
	if err := m.stores.Links.SaveLinks(ctx, links); err != nil {
		return nil, fmt.Errorf("linkset: save: %w", err)
	}

	m.emitEvent(ctx, domain.EventLinkUpdated, updated)
	m.logger.Info("link updated", "link_id", id, "enabled", updated.Enabled)
	return &updated, nil
}

// checkIdle must run under mu so the answer holds for the whole edit.
// Start does not take mu, so a run that begins mid-edit sees the saved
// links on its first tick.
func (m *Manager) checkIdle(op string) error {
	if m.cycle != nil && m.cycle.IsActive() {
		return domain.NewDomainError(op, domain.ErrCycleActive, "stop the cycle first")
	}
	return nil
}

// Settings returns the current settings.
func (m *Manager) Settings(ctx context.Context) (domain.Settings, error) {
	return m.stores.Settings.LoadSettings(ctx)
}

// SaveSettings validates and stores s. A running cycle picks the change up
// on its next tick.
func (m *Manager) SaveSettings(ctx context.Context, s domain.Settings) (domain.Settings, error) {
	mode, err := domain.ParseCycleMode(string(s.Mode))
	if err != nil {
		return domain.Settings{}, domain.WrapOp("linkset.SaveSettings", err)
	}
	s.Mode = mode
	if err := s.Validate(); err != nil {
		return domain.Settings{}, domain.WrapOp("linkset.SaveSettings", err)
	}
	if err := m.stores.Settings.SaveSettings(ctx, s); err != nil {
		return domain.Settings{}, fmt.Errorf("linkset: save settings: %w", err)
	}
	m.emitEvent(ctx, domain.EventSettingsSaved, s)
	m.logger.Info("settings saved", "mode", string(s.Mode), "global_interval", s.GlobalInterval, "max_total", s.MaxTotalIterations)
	return s, nil
}

// Logs returns the activity log, newest first.
func (m *Manager) Logs(ctx context.Context) ([]domain.LogEntry, error) {
	return m.stores.Logs.List(ctx)
}

// ClearLogs empties the activity log.
func (m *Manager) ClearLogs(ctx context.Context) error {
	if err := m.stores.Logs.Clear(ctx); err != nil {
		return err
	}
	m.emitEvent(ctx, domain.EventLogCleared, nil)
	return nil
}

// LookupTitle returns the page title for rawURL, or "" when unavailable.
func (m *Manager) LookupTitle(ctx context.Context, rawURL string) string {
	if m.titles == nil {
		return ""
	}
	return strings.TrimSpace(m.titles.Lookup(ctx, rawURL))
}

// Suggest asks the content suggester for URLs about topic.
func (m *Manager) Suggest(ctx context.Context, topic string, exampleURLs []string) ([]string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, domain.NewDomainError("linkset.Suggest", domain.ErrInvalidInput, "topic is required")
	}
	if m.suggester == nil {
		return nil, domain.NewDomainError("linkset.Suggest", domain.ErrCollaborator, "suggestions are disabled")
	}
	urls, err := m.suggester.Suggest(ctx, topic, exampleURLs)
	if err != nil {
		m.logger.Warn("suggest failed", "topic", topic, "error", err)
		return nil, err
	}
	return urls, nil
}

// AddSuggested adds the first suggested URL for topic, titled from the page
// or, failing that, from the URL host.
func (m *Manager) AddSuggested(ctx context.Context, topic string, exampleURLs []string, intervalSec, iterations int) (*domain.Link, error) {
	urls, err := m.Suggest(ctx, topic, exampleURLs)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, domain.NewDomainError("linkset.AddSuggested", domain.ErrNoSuggestion, topic)
	}
	target := urls[0]

	title := m.LookupTitle(ctx, target)
	if title == "" {
		title = hostOf(target)
	}
	link, err := m.Add(ctx, domain.Link{
		Title:       title,
		URL:         target,
		IntervalSec: intervalSec,
		Iterations:  iterations,
	})
	if err != nil {
		return nil, err
	}
	m.emitEvent(ctx, domain.EventSuggestionUsed, map[string]string{"topic": topic, "url": target})
	return link, nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func notFound(op, id string) error {
	return domain.NewSubSystemError("link", op, domain.ErrNotFound, fmt.Sprintf("link %q", id))
}

func (m *Manager) emitEvent(ctx context.Context, eventType domain.EventType, payload any) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(ctx, domain.NewEvent(eventType, payload))
}

func (m *Manager) newID() string {
	m.entropyMu.Lock()
	defer m.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), m.entropy).String()
}
