package pageflip

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pages is a PageLocator where pages[i] is the page of word i.
type pages []int

func (p pages) PageForIndex(i int) (int, bool) {
	if i < 0 || i >= len(p) {
		return 0, false
	}
	return p[i], true
}

func (p pages) Len() int { return len(p) }

func layout(counts map[int]int, order ...int) pages {
	var out pages
	for _, page := range order {
		for range counts[page] {
			out = append(out, page)
		}
	}
	return out
}

func TestOnCursorAdvanced_SingleFlipUntilAcknowledged(t *testing.T) {
	t.Parallel()

	// page 2 holds 0-9, page 3 holds 10-19
	m := New(layout(map[int]int{2: 10, 3: 10}, 2, 3))
	require.Equal(t, 2, m.Displayed())

	_, ok := m.OnCursorAdvanced(9)
	assert.False(t, ok)

	page, ok := m.OnCursorAdvanced(10)
	require.True(t, ok)
	assert.Equal(t, 3, page)
	assert.True(t, m.Pending())

	_, ok = m.OnCursorAdvanced(11)
	assert.False(t, ok, "duplicate flip while pending")

	m.AcknowledgeFlip()
	assert.False(t, m.Pending())
	assert.Equal(t, 3, m.Displayed())

	_, ok = m.OnCursorAdvanced(12)
	assert.False(t, ok)
}

func TestOnCursorAdvanced_Spread(t *testing.T) {
	t.Parallel()

	l := layout(map[int]int{2: 5, 3: 5, 4: 5, 5: 5}, 2, 3, 4, 5)
	m := New(l, WithSpread(2))
	require.Equal(t, 1, m.Displayed(), "page 2 belongs to the 1-2 pair")

	page, ok := m.OnCursorAdvanced(5)
	require.True(t, ok)
	assert.Equal(t, 3, page)
	m.AcknowledgeFlip()

	_, ok = m.OnCursorAdvanced(14)
	assert.False(t, ok, "page 4 is shown with page 3")

	page, ok = m.OnCursorAdvanced(15)
	require.True(t, ok)
	assert.Equal(t, 5, page)
}

func TestOnCursorAdvanced_JumpsSeveralPages(t *testing.T) {
	t.Parallel()

	m := New(layout(map[int]int{10: 3, 11: 3, 12: 3}, 10, 11, 12))

	page, ok := m.OnCursorAdvanced(7)
	require.True(t, ok)
	assert.Equal(t, 12, page)
}

func TestOnCursorAdvanced_ClipsToLastPage(t *testing.T) {
	t.Parallel()

	m := New(layout(map[int]int{603: 2, 604: 2, 605: 2}, 603, 604, 605), WithLastPage(604))

	page, ok := m.OnCursorAdvanced(4)
	require.True(t, ok)
	assert.Equal(t, 604, page)
	m.AcknowledgeFlip()

	_, ok = m.OnCursorAdvanced(5)
	assert.False(t, ok, "already on the last page")
}

func TestOnCursorAdvanced_NeverBackward(t *testing.T) {
	t.Parallel()

	m := New(layout(map[int]int{4: 3, 5: 3}, 4, 5))
	m.Reset(6)

	_, ok := m.OnCursorAdvanced(4)
	assert.False(t, ok)
	assert.Equal(t, 6, m.Displayed())
}

func TestOnCursorAdvanced_PastEnd(t *testing.T) {
	t.Parallel()

	m := New(pages{1, 1, 1})

	_, ok := m.OnCursorAdvanced(3)
	assert.False(t, ok)
}

func TestAcknowledgeFlip_WithoutPending(t *testing.T) {
	t.Parallel()

	m := New(pages{1, 1, 2})
	m.AcknowledgeFlip()

	assert.Equal(t, 1, m.Displayed())
	assert.False(t, m.Pending())
}

func TestReset_ClearsPending(t *testing.T) {
	t.Parallel()

	m := New(pages{1, 2, 3})
	_, ok := m.OnCursorAdvanced(1)
	require.True(t, ok)

	m.Reset(1)
	assert.False(t, m.Pending())

	page, ok := m.OnCursorAdvanced(2)
	require.True(t, ok)
	assert.Equal(t, 3, page)
}

func TestMonitor_ConcurrentAcknowledge(t *testing.T) {
	t.Parallel()

	var l pages
	for p := 1; p <= 50; p++ {
		l = append(l, p, p)
	}
	m := New(l)

	flips := make(chan int, len(l))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range flips {
			m.AcknowledgeFlip()
		}
	}()

	var got []int
	for cursor := range l.Len() {
		if page, ok := m.OnCursorAdvanced(cursor); ok {
			got = append(got, page)
			flips <- page
		}
	}
	close(flips)
	wg.Wait()

	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1], "flips must move forward")
	}
}
