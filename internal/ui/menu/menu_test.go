package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapTwoOptions(t *testing.T) {
	m := New("Sign In", "Sign Up")

	m.Up()
	assert.Equal(t, 1, m.Selected())
	m.Down()
	assert.Equal(t, 0, m.Selected())
	m.Down()
	m.Down()
	assert.Equal(t, 0, m.Selected())
}

func TestWrapNOptions(t *testing.T) {
	for n := 1; n <= 8; n++ {
		opts := make([]string, n)
		for i := range opts {
			opts[i] = string(rune('a' + i))
		}
		m := New(opts...)

		for i := 0; i < n; i++ {
			m.Down()
		}
		assert.Equal(t, 0, m.Selected(), "n=%d: n downs return to the start", n)

		m.Up()
		assert.Equal(t, n-1, m.Selected(), "n=%d: up from the first wraps to the last", n)

		for i := 0; i < 3*n+1; i++ {
			m.Up()
			assert.GreaterOrEqual(t, m.Selected(), 0)
			assert.Less(t, m.Selected(), n)
		}
	}
}

func TestLabelAndReset(t *testing.T) {
	m := New("BTC", "ETH", "DOGE")
	m.Down()
	assert.Equal(t, "ETH", m.Label())
	assert.Contains(t, m.View(), "> ETH")

	m.Reset()
	assert.Equal(t, 0, m.Selected())
	assert.Equal(t, 3, m.Len())
}

func TestNewPanicsWithoutOptions(t *testing.T) {
	assert.Panics(t, func() { New() })
}
