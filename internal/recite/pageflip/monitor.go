// Package pageflip decides when the displayed Mushaf page has been fully
// recited and the display should move on.
package pageflip

import (
	"sync"

	"go.uber.org/zap"
)

const (
	// DefaultLastPage is the last page of the Madani Mushaf.
	DefaultLastPage = 604
	// DefaultSpread shows one page at a time.
	DefaultSpread = 1
)

// PageLocator maps an expected word index to its page. *domain.Range
// satisfies it.
type PageLocator interface {
	PageForIndex(i int) (int, bool)
	Len() int
}

// Option configures a [Monitor].
type Option func(*Monitor)

// WithSpread sets how many pages are displayed together: 1 or 2. With 2,
// pairs start on odd pages (1-2, 3-4, ...). Other values are ignored.
func WithSpread(n int) Option {
	return func(m *Monitor) {
		if n == 1 || n == 2 {
			m.spread = n
		}
	}
}

// WithLastPage sets the page flips are clipped to.
func WithLastPage(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.lastPage = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// Monitor tracks the displayed page and emits at most one pending flip at a
// time. It is safe for concurrent use: the session feeds cursors from its
// consumer while the display acknowledges flips from elsewhere.
type Monitor struct {
	locator  PageLocator
	spread   int
	lastPage int
	logger   *zap.Logger

	mu        sync.Mutex
	displayed int
	// lastIndex is the highest word index on the displayed page(s), -1 if none
	lastIndex int
	pending   bool
	target    int
}

// New returns a monitor showing the page of the first word.
func New(locator PageLocator, opts ...Option) *Monitor {
	m := &Monitor{
		locator:  locator,
		spread:   DefaultSpread,
		lastPage: DefaultLastPage,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(m)
	}
	if first, ok := locator.PageForIndex(0); ok {
		m.reset(first)
	}
	return m
}

// Reset shows startPage and clears any pending flip.
func (m *Monitor) Reset(startPage int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset(startPage)
}

func (m *Monitor) reset(startPage int) {
	m.displayed = m.pairStart(startPage)
	m.lastIndex = m.highestDisplayedIndex()
	m.pending = false
	m.target = 0
}

// OnCursorAdvanced returns the page to flip to when cursor has moved past
// the displayed page(s). While a flip is pending it always returns false.
func (m *Monitor) OnCursorAdvanced(cursor int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending || cursor <= m.lastIndex {
		return 0, false
	}

	page, ok := m.locator.PageForIndex(cursor)
	if !ok {
		return 0, false
	}

	target := min(m.pairStart(page), m.lastPage)
	if target <= m.displayed {
		return 0, false
	}

	m.pending = true
	m.target = target
	m.logger.Debug("page flip requested",
		zap.Int("cursor", cursor),
		zap.Int("from_page", m.displayed),
		zap.Int("to_page", target),
	)
	return target, true
}

// AcknowledgeFlip marks the pending flip as done and makes its target the
// displayed page. Without a pending flip it does nothing.
func (m *Monitor) AcknowledgeFlip() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.pending {
		return
	}
	m.displayed = m.target
	m.lastIndex = m.highestDisplayedIndex()
	m.pending = false
	m.target = 0
}

// Displayed returns the first displayed page.
func (m *Monitor) Displayed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.displayed
}

// Pending reports whether a flip is waiting for acknowledgment.
func (m *Monitor) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

func (m *Monitor) pairStart(page int) int {
	if m.spread == 2 && page%2 == 0 {
		return page - 1
	}
	return page
}

// highestDisplayedIndex scans the locator for the last word shown on the
// displayed page(s). Words are in reading order, so pages never decrease.
func (m *Monitor) highestDisplayedIndex() int {
	last := m.displayed + m.spread - 1
	highest := -1
	for i := 0; i < m.locator.Len(); i++ {
		page, _ := m.locator.PageForIndex(i)
		if page > last {
			break
		}
		if page >= m.displayed {
			highest = i
		}
	}
	return highest
}
