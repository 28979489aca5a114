package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Mock is a deterministic in-process Provider for tests and offline
// runs. Responses are registered per profile name; unregistered
// profiles return an error so callers exercise their fallback paths.
type Mock struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []string
}

// NewMock creates a Mock with no registered responses.
func NewMock() *Mock {
	return &Mock{responses: make(map[string]string)}
}

// Respond registers the canned response for a profile name.
func (m *Mock) Respond(name, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[name] = response
}

// Calls returns the profile names invoked so far, in order.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *Mock) generate(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	resp, ok := m.responses[name]
	if !ok {
		return "", fmt.Errorf("mock: no response registered for %q", name)
	}
	return resp, nil
}

func (m *Mock) GenerateJSON(ctx context.Context, name, prompt string, target any) error {
	text, err := m.generate(name)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(CleanJSONBlock(text)), target)
}

func (m *Mock) HealthCheck(ctx context.Context) error { return nil }

func (m *Mock) HasProfile(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.responses[name]
	return ok
}
