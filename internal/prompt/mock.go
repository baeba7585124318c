package prompt

import (
	"context"
	"sync"
	"time"

	"prompt-image-editor/internal/ops"
)

// MockInterpreter is a scripted Interpreter for tests.
type MockInterpreter struct {
	// Control behavior
	Responses [][]ops.Request // returned in turn; the last one repeats
	Err       error           // returned instead of a response when set
	Delay     time.Duration   // how long each call blocks

	// Track calls for assertions
	Calls []InterpretCall

	mu   sync.Mutex
	next int
}

// InterpretCall records a call to Interpret.
type InterpretCall struct {
	Prompt    string
	Applied   string
	Timestamp time.Time
}

// NewMockInterpreter creates a mock that answers with responses in order.
func NewMockInterpreter(responses ...[]ops.Request) *MockInterpreter {
	return &MockInterpreter{Responses: responses}
}

func (m *MockInterpreter) Interpret(ctx context.Context, prompt, applied string) ([]ops.Request, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, InterpretCall{Prompt: prompt, Applied: applied, Timestamp: time.Now()})
	delay := m.Delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return nil, nil
	}
	i := m.next
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	} else {
		m.next++
	}
	out := make([]ops.Request, len(m.Responses[i]))
	copy(out, m.Responses[i])
	return out, nil
}

// CallCount returns how many times Interpret was called.
func (m *MockInterpreter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

var _ Interpreter = (*MockInterpreter)(nil)
