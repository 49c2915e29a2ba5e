package bubbletea_test

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/ssyqq/dream"
	bt "github.com/ssyqq/dream/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestUserMessageBlock_View(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(dream.DarkTheme())

	t.Run("renders prompt prefix and text", func(t *testing.T) {
		t.Parallel()
		view := bt.NewUserMessageBlock(dream.Message{Role: dream.RoleUser, Content: "hello world"}, styles).View(80)
		assert.Contains(t, view, "> ")
		assert.Contains(t, view, "hello world")
		assert.NotContains(t, view, "[image")
	})

	t.Run("shows attached image name", func(t *testing.T) {
		t.Parallel()
		msg := dream.Message{Role: dream.RoleUser, Content: "what is this?", ImagePath: "/home/me/pics/egg.jpg"}
		view := bt.NewUserMessageBlock(msg, styles).View(80)
		assert.Contains(t, view, "[image: egg.jpg]")
		assert.NotContains(t, view, "/home/me")
	})

	t.Run("pads lines to width", func(t *testing.T) {
		t.Parallel()
		view := bt.NewUserMessageBlock(dream.Message{Role: dream.RoleUser, Content: "test"}, styles).View(40)
		for _, line := range strings.Split(view, "\n") {
			assert.Equal(t, 40, lipgloss.Width(line))
		}
	})

	t.Run("wraps long text", func(t *testing.T) {
		t.Parallel()
		long := "short words that keep going and going beyond the viewport width easily"
		view := bt.NewUserMessageBlock(dream.Message{Role: dream.RoleUser, Content: long}, styles).View(30)
		assert.Contains(t, view, "easily")
		assert.Greater(t, len(strings.Split(view, "\n")), 1)
	})
}
