package lang

import (
	"context"
	"fmt"
	"sync"
)

// MockCall records one request made to the MockProvider.
type MockCall struct {
	Op         string // "translate" or "synthesize"
	Text       string
	TargetLang string
}

// MockProvider is a deterministic Provider for tests and for running the
// service without external credentials.  Translations are returned from a
// canned table (falling back to the input text) and Synthesize yields a
// fixed placeholder payload.  All calls are recorded.
type MockProvider struct {
	mu           sync.Mutex
	Translations map[string]string
	Errs         []error
	Calls        []MockCall
}

// NewMockProvider creates an empty mock.
func NewMockProvider() *MockProvider {
	return &MockProvider{Translations: make(map[string]string)}
}

// FailWith queues errors returned (in order) before calls succeed again.
func (m *MockProvider) FailWith(errs ...error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errs = append(m.Errs, errs...)
	return m
}

func (m *MockProvider) nextErr() error {
	if len(m.Errs) == 0 {
		return nil
	}
	err := m.Errs[0]
	m.Errs = m.Errs[1:]
	return err
}

func (m *MockProvider) Translate(_ context.Context, text, targetLang string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Op: "translate", Text: text, TargetLang: targetLang})
	if err := m.nextErr(); err != nil {
		return "", err
	}
	if out, ok := m.Translations[text]; ok {
		return out, nil
	}
	return text, nil
}

func (m *MockProvider) Synthesize(_ context.Context, text, lang string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Op: "synthesize", Text: text, TargetLang: lang})
	if err := m.nextErr(); err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("audio(%s,%s)", lang, text)), nil
}
