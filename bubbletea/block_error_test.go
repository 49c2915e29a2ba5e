package bubbletea_test

import (
	"errors"
	"testing"

	"github.com/ssyqq/dream"
	bt "github.com/ssyqq/dream/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestErrorBlock_View(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(dream.DarkTheme())
	view := bt.NewErrorBlock(errors.New("something broke"), styles).View(80)
	assert.Contains(t, view, "✗ Error: something broke")
}

func TestErrorBlock_ViewLabelsKind(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(dream.DarkTheme())
	err := &dream.Error{Kind: dream.KindHTTPStatus, Status: 401, Message: "invalid api key"}
	view := bt.NewErrorBlock(err, styles).View(80)
	assert.Contains(t, view, "Request rejected: HTTP 401: invalid api key")
}

func TestNoticeBlock_View(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(dream.DarkTheme())
	view := bt.NewNoticeBlock("Network error, retry 2 of 10...", styles).View(80)
	assert.Contains(t, view, "↻ Network error, retry 2 of 10...")
}
