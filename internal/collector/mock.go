package collector

import (
	"context"
	"fmt"
	"sync"
)

// MockBrowser returns controllable price text for development and testing.
// Errors queued in Script for an identifier are returned by successive
// attempts before Prices is consulted.
type MockBrowser struct {
	Prices  map[string]string
	Script  map[string][]error
	OpenErr error

	mu     sync.Mutex
	calls  map[string]int
	opened int
	closed int
}

func (m *MockBrowser) Name() string { return "mock" }

func (m *MockBrowser) NewSession(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	m.mu.Lock()
	m.opened++
	m.mu.Unlock()
	return &mockSession{browser: m}, nil
}

// Calls returns how many times ExtractPriceText ran for identifier.
func (m *MockBrowser) Calls(identifier string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[identifier]
}

// Sessions returns the number of sessions opened and closed so far.
func (m *MockBrowser) Sessions() (opened, closed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened, m.closed
}

type mockSession struct {
	browser *MockBrowser
	closed  bool
}

func (s *mockSession) ExtractPriceText(ctx context.Context, identifier string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m := s.browser
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	n := m.calls[identifier]
	m.calls[identifier] = n + 1

	if script := m.Script[identifier]; n < len(script) && script[n] != nil {
		return "", script[n]
	}
	text, ok := m.Prices[identifier]
	if !ok {
		return "", fmt.Errorf("mock: no price for %s", identifier)
	}
	return text, nil
}

func (s *mockSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.browser.mu.Lock()
	s.browser.closed++
	s.browser.mu.Unlock()
	return nil
}
