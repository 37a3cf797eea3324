package window

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestBrowserBuilder(t *testing.T, opened *[]string, openErr error) *BrowserBuilder {
	t.Helper()
	t.Setenv("DISPLAY", ":0")
	b := NewBrowserBuilder(zaptest.NewLogger(t).Sugar())
	b.openURL = func(url string) error {
		if openErr != nil {
			return openErr
		}
		*opened = append(*opened, url)
		return nil
	}
	return b
}

func TestBrowserWindowOpensOnTransitionToVisible(t *testing.T) {
	var opened []string
	b := newTestBrowserBuilder(t, &opened, nil)

	w, err := b.Build(testOptions)
	require.NoError(t, err)

	visible, err := w.IsVisible()
	require.NoError(t, err)
	assert.False(t, visible)

	require.NoError(t, w.Show())
	require.NoError(t, w.Show())
	require.NoError(t, w.Focus())
	assert.Equal(t, []string{"http://localhost:3088"}, opened)

	require.NoError(t, w.Hide())
	visible, _ = w.IsVisible()
	assert.False(t, visible)

	// the first tab is still open; showing again opens a second one
	require.NoError(t, w.Show())
	assert.Len(t, opened, 2)
}

func TestBrowserWindowOpenFailureStaysHidden(t *testing.T) {
	var opened []string
	b := newTestBrowserBuilder(t, &opened, errors.New("no browser"))

	w, err := b.Build(testOptions)
	require.NoError(t, err)

	assert.Error(t, w.Show())
	visible, _ := w.IsVisible()
	assert.False(t, visible)
}

func TestBrowserBuilderRejectsEmptyURL(t *testing.T) {
	var opened []string
	b := newTestBrowserBuilder(t, &opened, nil)

	_, err := b.Build(Options{Label: MainLabel})
	assert.Error(t, err)
}

func TestBrowserBuilderRequiresDisplayOnLinux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("display detection only applies to linux")
	}
	t.Setenv("DISPLAY", "")
	t.Setenv("WAYLAND_DISPLAY", "")
	t.Setenv("XDG_SESSION_TYPE", "")

	b := NewBrowserBuilder(zaptest.NewLogger(t).Sugar())
	_, err := b.Build(testOptions)
	assert.ErrorIs(t, err, ErrNoDisplay)
}

func TestControllerWithBrowserBackend(t *testing.T) {
	var opened []string
	b := newTestBrowserBuilder(t, &opened, nil)
	logger := zaptest.NewLogger(t).Sugar()
	c := newController(b, logger)

	c.Toggle()
	assert.Equal(t, StateVisible, c.State())
	c.Toggle()
	assert.Equal(t, StateHidden, c.State())
	c.ShowOrCreate()
	assert.Equal(t, StateVisible, c.State())
	assert.Len(t, opened, 2)
}
