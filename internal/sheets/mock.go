package sheets

import (
	"context"
	"sync"
)

// MockWriter records reports instead of publishing them.
// When Err is set, Write records the report and returns Err.
type MockWriter struct {
	Err     error
	reports []Report
	mu      sync.Mutex
}

var _ ReportWriter = (*MockWriter)(nil)

// Write implements ReportWriter.
func (m *MockWriter) Write(_ context.Context, report Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, report)
	return m.Err
}

// Reports returns every report passed to Write, oldest first.
func (m *MockWriter) Reports() []Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Report(nil), m.reports...)
}
