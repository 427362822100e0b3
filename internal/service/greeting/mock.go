package greeting

import (
	"context"
	"fmt"
	"sync"
)

// MockService implements Service for unit tests. Ids are taken from a fixed
// sequence and then continue from its last value.
type MockService struct {
	mu    sync.Mutex
	ids   []int64
	last  int64
	names []string
	err   error
}

// NewMockService creates a mock that returns ids in the given order.
// Without ids it counts from 1.
func NewMockService(ids ...int64) *MockService {
	return &MockService{ids: ids}
}

// SetError makes subsequent Greet calls fail with err.
func (m *MockService) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockService) Greet(_ context.Context, name string) (*Greeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	m.names = append(m.names, name)
	if name == "" {
		name = DefaultName
	}
	if len(m.ids) > 0 {
		m.last, m.ids = m.ids[0], m.ids[1:]
	} else {
		m.last++
	}
	return &Greeting{ID: m.last, Content: fmt.Sprintf(Template, name)}, nil
}

func (m *MockService) Issued() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.names))
}

// Names returns the names passed to Greet, in call order.
func (m *MockService) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.names...)
}
