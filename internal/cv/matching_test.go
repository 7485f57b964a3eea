package cv

import (
	"image"
	"math"
	"math/rand"
	"slices"
	"testing"
)

func noiseFrame(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		v := uint8(rng.Intn(256))
		img.Pix[i] = v
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = v / 2
		img.Pix[i+3] = 255
	}
	return img
}

func cropGray(img *image.RGBA, r image.Rectangle) *image.Gray {
	return ToGray(img.SubImage(r))
}

func TestSurfaceAboveThresholdBoundary(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  int
	}{
		{"exactly at threshold", 0.7, 1},
		{"just below threshold", 0.6999, 0},
		{"above threshold", 0.95, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSurface(4, 3)
			s.Set(2, 1, tt.score)

			got := slices.Collect(s.Above(DefaultThreshold))
			if len(got) != tt.want {
				t.Fatalf("expected %d matches, got %d", tt.want, len(got))
			}
			if tt.want == 1 && got[0].TopLeft != image.Pt(2, 1) {
				t.Errorf("match at %v, want (2,1)", got[0].TopLeft)
			}
		})
	}
}

func TestSurfaceAboveRowMajorOrder(t *testing.T) {
	s := NewSurface(6, 3)
	s.Set(1, 2, 0.99)
	s.Set(5, 0, 0.71)
	s.Set(0, 1, 0.80)
	s.Set(3, 0, 0.75)

	got := slices.Collect(s.Above(0.7))
	want := []image.Point{{3, 0}, {5, 0}, {0, 1}, {1, 2}}
	if len(got) != len(want) {
		t.Fatalf("expected %d matches, got %d", len(want), len(got))
	}
	for i, m := range got {
		if m.TopLeft != want[i] {
			t.Errorf("match %d at %v, want %v", i, m.TopLeft, want[i])
		}
	}
}

func TestSurfaceAboveStopsEarly(t *testing.T) {
	s := NewSurface(3, 3)
	for i := range s.Scores {
		s.Scores[i] = 1
	}

	n := 0
	for range s.Above(0.7) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("expected to consume 2 matches, got %d", n)
	}
}

func TestCorrelationSurfaceFindsPlantedTemplate(t *testing.T) {
	frame := noiseFrame(80, 60, 42)
	loc := image.Pt(31, 17)
	tmpl := cropGray(frame, image.Rectangle{Min: loc, Max: loc.Add(image.Pt(12, 10))})

	surface, err := CorrelationSurface(ToGray(frame), tmpl)
	if err != nil {
		t.Fatalf("CorrelationSurface: %v", err)
	}
	if surface.Width != 80-12+1 || surface.Height != 60-10+1 {
		t.Fatalf("unexpected surface size %dx%d", surface.Width, surface.Height)
	}

	if got := surface.At(loc.X, loc.Y); math.Abs(got-1) > 1e-9 {
		t.Errorf("expected perfect correlation at plant, got %f", got)
	}

	best, ok := surface.Best()
	if !ok || best.TopLeft != loc {
		t.Errorf("best match at %v, want %v", best.TopLeft, loc)
	}

	for _, v := range surface.Scores {
		if v < -1 || v > 1 {
			t.Fatalf("score %f out of [-1, 1]", v)
		}
	}
}

func TestCorrelationSurfaceInvariantToBrightness(t *testing.T) {
	frame := noiseFrame(40, 40, 7)
	gray := ToGray(frame)
	loc := image.Pt(5, 20)
	tmpl := cropGray(frame, image.Rectangle{Min: loc, Max: loc.Add(image.Pt(8, 8))})

	// Dim the template: a linear intensity change keeps the coefficient at 1
	for i, v := range tmpl.Pix {
		tmpl.Pix[i] = v / 2
	}

	surface, err := CorrelationSurface(gray, tmpl)
	if err != nil {
		t.Fatalf("CorrelationSurface: %v", err)
	}
	if got := surface.At(loc.X, loc.Y); got < 0.99 {
		t.Errorf("expected near-perfect correlation after dimming, got %f", got)
	}
}

func TestCorrelationSurfaceEdgeCases(t *testing.T) {
	frame := ToGray(noiseFrame(10, 10, 3))

	t.Run("template larger than frame", func(t *testing.T) {
		surface, err := CorrelationSurface(frame, image.NewGray(image.Rect(0, 0, 11, 4)))
		if err != nil || surface != nil {
			t.Errorf("expected nil surface and no error, got %v, %v", surface, err)
		}
	})

	t.Run("flat template scores zero", func(t *testing.T) {
		flat := image.NewGray(image.Rect(0, 0, 3, 3))
		surface, err := CorrelationSurface(frame, flat)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, v := range surface.Scores {
			if v != 0 {
				t.Fatalf("flat template should score 0, got %f", v)
			}
		}
	})

	t.Run("flat frame window scores zero", func(t *testing.T) {
		black := image.NewGray(image.Rect(0, 0, 10, 10))
		tmpl := ToGray(noiseFrame(3, 3, 9))
		surface, err := CorrelationSurface(black, tmpl)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := surface.Best(); !ok {
			t.Fatal("expected a surface")
		}
		for _, v := range surface.Scores {
			if v != 0 {
				t.Fatalf("flat window should score 0, got %f", v)
			}
		}
	})
}

func TestMatcherMatch(t *testing.T) {
	img := noiseFrame(64, 48, 11)
	frame := &Frame{Image: img, Rect: NewScreenRect(100, 50, 164, 98)}
	loc := image.Pt(20, 30)
	tmpl := &ScaledTemplate{Name: "newgame", Gray: cropGray(img, image.Rectangle{Min: loc, Max: loc.Add(image.Pt(10, 10))})}

	matcher := NewMatcher(nil)
	matches, err := matcher.Match(frame, tmpl)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}

	got := slices.Collect(matches)
	if len(got) == 0 {
		t.Fatal("expected at least one match")
	}
	if got[0].TopLeft != loc {
		t.Errorf("first match at %v, want %v", got[0].TopLeft, loc)
	}
}

func TestMatcherOptions(t *testing.T) {
	img := noiseFrame(30, 30, 5)
	frame := &Frame{Image: img}
	tmpl := &ScaledTemplate{Name: "s", Gray: image.NewGray(image.Rect(0, 0, 4, 4))}

	fixed := func(_, _ *image.Gray) (*Surface, error) {
		s := NewSurface(5, 5)
		s.Set(1, 1, 0.8)
		s.Set(4, 4, 0.9)
		return s, nil
	}

	t.Run("custom threshold", func(t *testing.T) {
		m := NewMatcher(nil, WithSurfaceFunc(fixed), WithThreshold(0.85))
		matches, _ := m.Match(frame, tmpl)
		got := slices.Collect(matches)
		if len(got) != 1 || got[0].TopLeft != image.Pt(4, 4) {
			t.Errorf("unexpected matches %v", got)
		}
	})

	t.Run("template threshold overrides", func(t *testing.T) {
		m := NewMatcher(nil, WithSurfaceFunc(fixed))
		override := *tmpl
		override.Threshold = 0.95
		matches, _ := m.Match(frame, &override)
		if got := slices.Collect(matches); len(got) != 0 {
			t.Errorf("expected no matches, got %v", got)
		}
	})

	t.Run("search region", func(t *testing.T) {
		m := NewMatcher(nil, WithSurfaceFunc(fixed), WithSearchRegion(image.Rect(2, 2, 5, 5)))
		matches, _ := m.Match(frame, tmpl)
		got := slices.Collect(matches)
		if len(got) != 1 || got[0].TopLeft != image.Pt(4, 4) {
			t.Errorf("unexpected matches %v", got)
		}
	})
}

func TestMatcherEmptyFrame(t *testing.T) {
	called := false
	m := NewMatcher(nil, WithSurfaceFunc(func(_, _ *image.Gray) (*Surface, error) {
		called = true
		return nil, nil
	}))

	matches, err := m.Match(&Frame{Image: image.NewRGBA(image.Rectangle{})}, &ScaledTemplate{Gray: image.NewGray(image.Rect(0, 0, 2, 2))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := slices.Collect(matches); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
	if called {
		t.Error("surface should not be computed for an empty frame")
	}
}
