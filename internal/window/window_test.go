package window

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/stow-dashboard/stow-desktop/internal/observability"
)

type fakeWindow struct {
	visible    bool
	shows      int
	hides      int
	focuses    int
	visibleErr error
	showErr    error
	focusErr   error
}

func (w *fakeWindow) Show() error {
	w.shows++
	if w.showErr != nil {
		return w.showErr
	}
	w.visible = true
	return nil
}

func (w *fakeWindow) Hide() error {
	w.hides++
	w.visible = false
	return nil
}

func (w *fakeWindow) Focus() error {
	w.focuses++
	return w.focusErr
}

func (w *fakeWindow) IsVisible() (bool, error) {
	if w.visibleErr != nil {
		return false, w.visibleErr
	}
	return w.visible, nil
}

type fakeBuilder struct {
	builds int
	opts   []Options
	err    error
	win    *fakeWindow
}

func (b *fakeBuilder) Build(opts Options) (Window, error) {
	b.builds++
	b.opts = append(b.opts, opts)
	if b.err != nil {
		return nil, b.err
	}
	b.win = &fakeWindow{}
	return b.win, nil
}

var testOptions = Options{
	Title:     "Stow Dashboard",
	URL:       "http://localhost:3088",
	Width:     1400,
	Height:    900,
	MinWidth:  800,
	MinHeight: 600,
	Center:    true,
}

func newController(b Builder, logger *zap.SugaredLogger) *Controller {
	return NewController(b, testOptions, logger, observability.NewMetrics(logger))
}

func TestInitialStateAbsent(t *testing.T) {
	c := newController(&fakeBuilder{}, zaptest.NewLogger(t).Sugar())
	assert.Equal(t, StateAbsent, c.State())
}

func TestHideWhenAbsentIsNoop(t *testing.T) {
	b := &fakeBuilder{}
	c := newController(b, zaptest.NewLogger(t).Sugar())

	c.Hide()
	assert.Equal(t, StateAbsent, c.State())
	assert.Zero(t, b.builds)
}

func TestShowOrCreateBuildsOnce(t *testing.T) {
	b := &fakeBuilder{}
	c := newController(b, zaptest.NewLogger(t).Sugar())

	c.ShowOrCreate()
	c.ShowOrCreate()

	assert.Equal(t, StateVisible, c.State())
	assert.Equal(t, 1, b.builds)
	assert.Equal(t, 2, b.win.shows)
	assert.Equal(t, 2, b.win.focuses)

	require.Len(t, b.opts, 1)
	assert.Equal(t, MainLabel, b.opts[0].Label)
	assert.Equal(t, "http://localhost:3088", b.opts[0].URL)
	assert.True(t, b.opts[0].Center)
}

func TestShowOrCreateBuildFailureIsSwallowed(t *testing.T) {
	b := &fakeBuilder{err: errors.New("platform refused")}
	c := newController(b, zaptest.NewLogger(t).Sugar())

	c.ShowOrCreate()
	assert.Equal(t, StateAbsent, c.State())

	c.Toggle()
	assert.Equal(t, StateAbsent, c.State())
	assert.Equal(t, 2, b.builds, "construction is retried on the next show")
}

func TestHideThenShow(t *testing.T) {
	b := &fakeBuilder{}
	c := newController(b, zaptest.NewLogger(t).Sugar())

	c.ShowOrCreate()
	c.Hide()
	assert.Equal(t, StateHidden, c.State())

	c.ShowOrCreate()
	assert.Equal(t, StateVisible, c.State())
	assert.Equal(t, 1, b.builds)
}

func TestToggleTransitions(t *testing.T) {
	b := &fakeBuilder{}
	c := newController(b, zaptest.NewLogger(t).Sugar())

	c.Toggle()
	assert.Equal(t, StateVisible, c.State(), "absent toggles to visible")

	c.Toggle()
	assert.Equal(t, StateHidden, c.State())

	c.Toggle()
	assert.Equal(t, StateVisible, c.State())
	assert.Equal(t, 1, b.builds)
}

func TestToggleVisibilityQueryFailureShows(t *testing.T) {
	b := &fakeBuilder{}
	c := newController(b, zaptest.NewLogger(t).Sugar())
	c.ShowOrCreate()

	b.win.visibleErr = errors.New("query failed")
	showsBefore := b.win.shows

	c.Toggle()
	assert.Equal(t, showsBefore+1, b.win.shows, "failed query is treated as not visible")
	assert.Zero(t, b.win.hides)
	assert.Equal(t, StateHidden, c.State())
}

func TestShowAndFocusErrorsAreSwallowed(t *testing.T) {
	b := &fakeBuilder{}
	c := newController(b, zaptest.NewLogger(t).Sugar())
	c.ShowOrCreate()

	b.win.visible = false
	b.win.showErr = errors.New("show failed")
	b.win.focusErr = errors.New("focus failed")

	assert.NotPanics(t, c.ShowOrCreate)
	assert.Equal(t, StateHidden, c.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "absent", StateAbsent.String())
	assert.Equal(t, "visible", StateVisible.String())
	assert.Equal(t, "hidden", StateHidden.String())
}

// model is the reference state machine
func model(s State, op string) State {
	switch op {
	case "show":
		return StateVisible
	case "hide":
		if s == StateAbsent {
			return StateAbsent
		}
		return StateHidden
	case "toggle":
		if s == StateVisible {
			return StateHidden
		}
		return StateVisible
	}
	return s
}

func apply(c *Controller, op string) {
	switch op {
	case "show":
		c.ShowOrCreate()
	case "hide":
		c.Hide()
	case "toggle":
		c.Toggle()
	}
}

func TestControllerMatchesModel(t *testing.T) {
	logger := zap.NewNop().Sugar()
	metrics := observability.NewMetrics(logger)

	rapid.Check(t, func(t *rapid.T) {
		b := &fakeBuilder{}
		c := NewController(b, testOptions, logger, metrics)

		ops := rapid.SliceOf(rapid.SampledFrom([]string{"show", "hide", "toggle"})).Draw(t, "ops")

		want := StateAbsent
		for _, op := range ops {
			apply(c, op)
			want = model(want, op)
			if got := c.State(); got != want {
				t.Fatalf("after %v: state %s, want %s", ops, got, want)
			}
		}
		if b.builds > 1 {
			t.Fatalf("window built %d times", b.builds)
		}
	})
}

func TestDoubleToggleRestoresVisibility(t *testing.T) {
	logger := zap.NewNop().Sugar()
	metrics := observability.NewMetrics(logger)

	rapid.Check(t, func(t *rapid.T) {
		c := NewController(&fakeBuilder{}, testOptions, logger, metrics)

		// reach a created state first
		c.ShowOrCreate()
		for _, op := range rapid.SliceOf(rapid.SampledFrom([]string{"show", "hide", "toggle"})).Draw(t, "prefix") {
			apply(c, op)
		}

		before := c.State()
		c.Toggle()
		c.Toggle()
		if after := c.State(); after != before {
			t.Fatalf("double toggle changed state %s -> %s", before, after)
		}
	})
}

func TestDoubleShowIsVisible(t *testing.T) {
	logger := zap.NewNop().Sugar()
	metrics := observability.NewMetrics(logger)

	rapid.Check(t, func(t *rapid.T) {
		c := NewController(&fakeBuilder{}, testOptions, logger, metrics)
		for _, op := range rapid.SliceOf(rapid.SampledFrom([]string{"show", "hide", "toggle"})).Draw(t, "prefix") {
			apply(c, op)
		}

		c.ShowOrCreate()
		c.ShowOrCreate()
		if got := c.State(); got != StateVisible {
			t.Fatalf("state after double show = %s", got)
		}
	})
}
