package browser

import (
	"errors"
	"testing"
)

func TestCallExpression(t *testing.T) {
	t.Parallel()

	t.Run("renders arguments as JSON", func(t *testing.T) {
		t.Parallel()

		s := NewScript("probe", "  (a, b) => a.x + b  ")
		got, err := s.Invoke(map[string]int{"x": 1}, "two").Expression()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := `((a, b) => a.x + b)({"x":1}, "two")`
		if got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	})

	t.Run("no arguments", func(t *testing.T) {
		t.Parallel()

		got, err := NewScript("title", "() => document.title").Invoke().Expression()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "(() => document.title)()" {
			t.Errorf("unexpected expression %s", got)
		}
	})

	t.Run("empty source is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := Call{Script: Script{Name: "empty"}}.Expression()
		if !errors.Is(err, ErrInvalidScript) {
			t.Errorf("expected ErrInvalidScript, got %v", err)
		}
	})

	t.Run("unencodable argument is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NewScript("bad", "(x) => x").Invoke(make(chan int)).Expression()
		if !errors.Is(err, ErrInvalidScript) {
			t.Errorf("expected ErrInvalidScript, got %v", err)
		}
	})
}

func TestRectExpand(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   Rect
		want Rect
	}{
		{"inside viewport", Rect{X: 100, Y: 50, Width: 20, Height: 10}, Rect{X: 84, Y: 34, Width: 52, Height: 42}},
		{"clamped at origin", Rect{X: 4, Y: 0, Width: 10, Height: 10}, Rect{X: 0, Y: 0, Width: 30, Height: 26}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.in.Expand(16); got != tc.want {
				t.Errorf("expected %+v, got %+v", tc.want, got)
			}
		})
	}

	if !(Rect{Width: 0, Height: 5}).Empty() {
		t.Error("expected zero-width rect to be empty")
	}
}

func TestCollectFrameURLs(t *testing.T) {
	t.Parallel()

	if got := collectFrameURLs(nil, nil); len(got) != 0 {
		t.Errorf("expected no URLs, got %v", got)
	}
}
