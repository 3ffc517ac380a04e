package gesture

import (
	"math"
	"testing"

	"github.com/ayusman/tandava/internal/detector"
	"github.com/ayusman/tandava/internal/hand"
)

func builtinMatcher() *StaticMatcher {
	m := NewStaticMatcher()
	for _, t := range Builtin() {
		m.AddTemplate(t)
	}
	return m
}

// jitter moves every point by a small deterministic offset.
func jitter(h detector.HandLandmarks, amount float64) detector.HandLandmarks {
	for i := range h.Points {
		s := float64(i%3) - 1
		h.Points[i].X += s * amount
		h.Points[i].Y -= s * amount
	}
	return h
}

func TestStaticMatcher_ClassifiesReferencePoses(t *testing.T) {
	m := builtinMatcher()

	tests := []struct {
		name string
		pose detector.HandLandmarks
		want hand.Gesture
	}{
		{"open palm", detector.OpenPalmLandmarks(), hand.Open},
		{"closed fist", detector.ClosedFistLandmarks(), hand.Closed},
		{"pointing", detector.PointingLandmarks(), hand.Pointing},
		{"pinch", detector.PinchLandmarks(), hand.Pinch},
		{"moved fist", detector.ClosedFistLandmarks().Translate(0.2, -0.3), hand.Closed},
		{"noisy pinch", jitter(detector.PinchLandmarks(), 0.002), hand.Pinch},
		{"noisy open palm", jitter(detector.OpenPalmLandmarks(), 0.002), hand.Open},
		{"thumbs up is not tracked", detector.ThumbsUpLandmarks(), hand.None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, score := m.Classify(&tt.pose)
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
			if tt.want != hand.None && score <= 0 {
				t.Errorf("expected a positive score, got %f", score)
			}
		})
	}
}

func TestStaticMatcher_IdenticalPoseScoresOne(t *testing.T) {
	m := builtinMatcher()
	fist := detector.ClosedFistLandmarks()

	matches := m.Match(&fist)
	if len(matches) == 0 {
		t.Fatal("expected a match")
	}
	if matches[0].Distance > 1e-9 || math.Abs(matches[0].Score-1) > 1e-9 {
		t.Errorf("expected distance 0 and score 1, got %f and %f", matches[0].Distance, matches[0].Score)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Error("matches are not sorted by score")
		}
	}
}

func TestStaticMatcher_AddReplaceRemove(t *testing.T) {
	m := NewStaticMatcher()
	m.AddTemplate(nil)

	fist := detector.ClosedFistLandmarks()
	m.AddTemplate(&Template{ID: "a", Gesture: hand.Closed, Landmarks: fist.Normalize().Points[:], Tolerance: 1})
	m.AddTemplate(&Template{ID: "b", Gesture: hand.Closed, Landmarks: fist.Normalize().Points[:], Tolerance: 1})
	m.AddTemplate(&Template{ID: "c", Gesture: hand.Open, Tolerance: 1})
	if n := len(m.Templates()); n != 3 {
		t.Fatalf("expected 3 templates, got %d", n)
	}

	m.AddTemplate(&Template{ID: "a", Gesture: hand.Pinch, Tolerance: 1})
	if n := len(m.Templates()); n != 3 {
		t.Fatalf("expected replacement to keep 3 templates, got %d", n)
	}
	if g := m.Templates()[0].Gesture; g != hand.Pinch {
		t.Errorf("expected template a to be replaced, gesture %v", g)
	}

	m.RemoveTemplate("c")
	m.RemoveTemplate("missing")
	if n := len(m.Templates()); n != 2 {
		t.Fatalf("expected 2 templates, got %d", n)
	}

	m.RemoveGesture(hand.Closed)
	templates := m.Templates()
	if len(templates) != 1 || templates[0].ID != "a" {
		t.Errorf("expected only template a to remain, got %v", templates)
	}
}

func TestStaticMatcher_EmptyTemplateNeverMatches(t *testing.T) {
	m := NewStaticMatcher()
	m.AddTemplate(&Template{ID: "empty", Gesture: hand.Open, Tolerance: 100})

	open := detector.OpenPalmLandmarks()
	if got, _ := m.Classify(&open); got != hand.None {
		t.Errorf("expected None, got %v", got)
	}
}

func TestStaticMatcher_NilInput(t *testing.T) {
	if matches := builtinMatcher().Match(nil); matches != nil {
		t.Errorf("expected nil matches for nil input, got %v", matches)
	}
}

func TestEuclideanDistance(t *testing.T) {
	a := []detector.Point3D{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}}
	b := []detector.Point3D{{X: 3, Y: 4, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 9, Y: 9, Z: 9}}

	if d := euclideanDistance(a, b); math.Abs(d-5) > 1e-9 {
		t.Errorf("expected 5, got %f", d)
	}
	if d := euclideanDistance(nil, b); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf for empty input, got %f", d)
	}
}

func TestBuiltin(t *testing.T) {
	templates := Builtin()
	if len(templates) != 4 {
		t.Fatalf("expected 4 built-in templates, got %d", len(templates))
	}

	want := []hand.Gesture{hand.Pinch, hand.Open, hand.Pointing, hand.Closed}
	for i, tmpl := range templates {
		if tmpl.Gesture != want[i] {
			t.Errorf("template %d: gesture %v, want %v", i, tmpl.Gesture, want[i])
		}
		if tmpl.ID != BuiltinID(want[i]) {
			t.Errorf("template %d: id %q", i, tmpl.ID)
		}
		if len(tmpl.Landmarks) != detector.NumLandmarks {
			t.Errorf("template %d: %d landmarks", i, len(tmpl.Landmarks))
		}
	}

	// The poses must be far enough apart that a default tolerance match is
	// unambiguous about its nearest neighbour.
	for i := range templates {
		for j := i + 1; j < len(templates); j++ {
			d := euclideanDistance(templates[i].Landmarks, templates[j].Landmarks)
			if d <= DefaultTolerance {
				t.Errorf("%v and %v are only %.2f apart", templates[i].Gesture, templates[j].Gesture, d)
			}
		}
	}
}
