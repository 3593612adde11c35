package router

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

type fakeScreen struct {
	name    string
	width   int
	inits   int
	updates []tea.Msg
}

func (f *fakeScreen) Init() tea.Cmd {
	f.inits++
	return nil
}

func (f *fakeScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	f.updates = append(f.updates, msg)
	return f, nil
}

func (f *fakeScreen) View() string          { return f.name }
func (f *fakeScreen) SetSize(width, _ int) { f.width = width }

func TestPushPopReset(t *testing.T) {
	root := &fakeScreen{name: "root"}
	r := New(root)
	r.SetSize(80, 24)

	child := &fakeScreen{name: "child"}
	r.Push(child)
	assert.Equal(t, 2, r.Depth())
	assert.Equal(t, "child", r.View())
	assert.Equal(t, 80, child.width)
	assert.Equal(t, 1, child.inits)

	r.Pop()
	assert.Equal(t, "root", r.View())
	assert.Equal(t, 1, root.inits)

	r.Pop()
	assert.Equal(t, 1, r.Depth(), "the last screen is never popped")

	r.Push(child)
	fresh := &fakeScreen{name: "fresh"}
	r.Reset(fresh)
	assert.Equal(t, 1, r.Depth())
	assert.Same(t, fresh, r.Current())
}

func TestUpdateForwardsToCurrentOnly(t *testing.T) {
	root := &fakeScreen{name: "root"}
	r := New(root)
	child := &fakeScreen{name: "child"}
	r.Push(child)

	key := tea.KeyMsg{Type: tea.KeyEsc}
	r.Update(key)
	assert.Equal(t, []tea.Msg{key}, child.updates)
	assert.Empty(t, root.updates)
	assert.Equal(t, 2, r.Depth(), "esc does not pop by itself")

	r.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, child.width)
	assert.Len(t, child.updates, 1)
}
