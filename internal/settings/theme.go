package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTheme is returned when a theme name is neither light nor dark.
var ErrInvalidTheme = errors.New("invalid theme")

// Theme is the dashboard colour scheme.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// ThemeKey is the fixed preference key the theme is persisted under.
const ThemeKey = "theme"

// ParseTheme validates a theme name.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(s); t {
	case Light, Dark:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
	}
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Store persists the theme preference.
type Store interface {
	Load(ctx context.Context) (Theme, error)
	Save(ctx context.Context, theme Theme) error
}

// Manager is the process-wide settings object: load once at startup, save on
// every change.
type Manager struct {
	mu    sync.Mutex
	store Store
	theme Theme
}

// NewManager creates a Manager that starts in the light theme until Load runs.
func NewManager(store Store) *Manager {
	return &Manager{store: store, theme: Light}
}

// Load reads the persisted theme. On error the current theme is kept.
func (m *Manager) Load(ctx context.Context) (Theme, error) {
	theme, err := m.store.Load(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		return m.theme, fmt.Errorf("load theme: %w", err)
	}
	m.theme = theme
	return theme, nil
}

// Theme returns the active theme.
func (m *Manager) Theme() Theme {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.theme
}

// Set switches the theme and persists it. The in-memory theme changes even if
// saving fails, matching a page that keeps working with a broken storage.
func (m *Manager) Set(ctx context.Context, theme Theme) error {
	if _, err := ParseTheme(string(theme)); err != nil {
		return err
	}
	m.mu.Lock()
	m.theme = theme
	m.mu.Unlock()

	if err := m.store.Save(ctx, theme); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// Toggle flips between light and dark and persists the result. Concurrent
// toggles never read the same starting theme.
func (m *Manager) Toggle(ctx context.Context) (Theme, error) {
	m.mu.Lock()
	next := m.theme.Toggle()
	m.theme = next
	m.mu.Unlock()

	if err := m.store.Save(ctx, next); err != nil {
		return next, fmt.Errorf("save theme: %w", err)
	}
	return next, nil
}

// MemoryStore keeps the theme in memory. An empty store loads as light.
type MemoryStore struct {
	mu    sync.Mutex
	theme Theme
	saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) (Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.theme == "" {
		return Light, nil
	}
	return s.theme, nil
}

func (s *MemoryStore) Save(_ context.Context, theme Theme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = theme
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
