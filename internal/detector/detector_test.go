package detector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
)

const epsilon = 1e-9

func TestHandLandmarks_Normalize(t *testing.T) {
	t.Run("wrist at origin and unit palm length", func(t *testing.T) {
		hand := HandLandmarks{Handedness: "Left", Score: 0.9}
		hand.Points[Wrist] = Point3D{X: 10, Y: 20, Z: 5}
		hand.Points[MiddleMCP] = Point3D{X: 13, Y: 24, Z: 5} // distance 5
		for i := 1; i < NumLandmarks; i++ {
			if i != MiddleMCP {
				hand.Points[i] = Point3D{X: 10 + float64(i), Y: 20 + float64(i), Z: 5}
			}
		}

		n := hand.Normalize()

		if n.Points[Wrist] != (Point3D{}) {
			t.Errorf("expected wrist at origin, got %+v", n.Points[Wrist])
		}
		m := n.Points[MiddleMCP]
		if d := math.Sqrt(m.X*m.X + m.Y*m.Y + m.Z*m.Z); math.Abs(d-1) > epsilon {
			t.Errorf("expected wrist to middle MCP distance 1, got %f", d)
		}
		if n.Handedness != "Left" || n.Score != 0.9 {
			t.Errorf("handedness and score not preserved: %q %f", n.Handedness, n.Score)
		}
	})

	t.Run("position and size do not change the pose", func(t *testing.T) {
		a := ClosedFistLandmarks()
		b := a.Translate(-0.2, 0.1)
		for i := range b.Points {
			b.Points[i].X *= 1.5
			b.Points[i].Y *= 1.5
			b.Points[i].Z *= 1.5
		}

		na, nb := a.Normalize(), b.Normalize()
		for i := range na.Points {
			if distance3D(na.Points[i], nb.Points[i]) > 1e-6 {
				t.Fatalf("point %d differs: %+v vs %+v", i, na.Points[i], nb.Points[i])
			}
		}
	})

	t.Run("nil hand returns nil", func(t *testing.T) {
		var hand *HandLandmarks
		if hand.Normalize() != nil {
			t.Error("expected nil result for nil input")
		}
	})

	t.Run("zero scale is translated only", func(t *testing.T) {
		hand := HandLandmarks{}
		hand.Points[Wrist] = Point3D{X: 10, Y: 20, Z: 5}
		hand.Points[MiddleMCP] = Point3D{X: 10, Y: 20, Z: 5}
		hand.Points[IndexTip] = Point3D{X: 11, Y: 20, Z: 5}

		n := hand.Normalize()
		if math.Abs(n.Points[IndexTip].X-1) > epsilon {
			t.Errorf("expected unscaled index tip X 1, got %f", n.Points[IndexTip].X)
		}
	})
}

func TestHandLandmarks_PalmCenter(t *testing.T) {
	hand := HandLandmarks{}
	hand.Points[Wrist] = Point3D{X: 0.5, Y: 1.0, Z: 0.5}
	hand.Points[IndexMCP] = Point3D{X: 0.6, Y: 0.5}
	hand.Points[MiddleMCP] = Point3D{X: 0.5, Y: 0.5}
	hand.Points[RingMCP] = Point3D{X: 0.4, Y: 0.5}
	hand.Points[PinkyMCP] = Point3D{X: 0.5, Y: 0.5}
	hand.Points[IndexTip] = Point3D{X: 9, Y: 9, Z: 9} // ignored

	c := hand.PalmCenter()
	if math.Abs(c.X-0.5) > epsilon || math.Abs(c.Y-0.6) > epsilon || math.Abs(c.Z-0.1) > epsilon {
		t.Errorf("unexpected palm centre %+v", c)
	}
}

func TestHandLandmarks_Translate(t *testing.T) {
	a := OpenPalmLandmarks()
	b := a.Translate(0.1, -0.2)

	if a.Points[Wrist].X != 0.5 {
		t.Error("Translate must not modify the receiver")
	}
	if math.Abs(b.Points[Wrist].X-0.6) > epsilon || math.Abs(b.Points[Wrist].Y-0.6) > epsilon {
		t.Errorf("unexpected translated wrist %+v", b.Points[Wrist])
	}
	if b.Points[Wrist].Z != a.Points[Wrist].Z {
		t.Error("Translate must not change depth")
	}
}

func TestPoses(t *testing.T) {
	tipBelowPIP := func(h HandLandmarks, tip, pip int) bool {
		// Image Y grows downward, so a curled fingertip sits lower than its PIP.
		return h.Points[tip].Y > h.Points[pip].Y
	}

	fist := ClosedFistLandmarks()
	for _, f := range [][2]int{{IndexTip, IndexPIP}, {MiddleTip, MiddlePIP}, {RingTip, RingPIP}, {PinkyTip, PinkyPIP}} {
		if !tipBelowPIP(fist, f[0], f[1]) {
			t.Errorf("fist: finger tip %d should be curled", f[0])
		}
	}

	point := PointingLandmarks()
	if tipBelowPIP(point, IndexTip, IndexPIP) {
		t.Error("pointing: index should be extended")
	}
	if !tipBelowPIP(point, MiddleTip, MiddlePIP) {
		t.Error("pointing: middle should be curled")
	}

	pinch := PinchLandmarks()
	if d := distance3D(pinch.Points[ThumbTip], pinch.Points[IndexTip]); d > 0.03 {
		t.Errorf("pinch: thumb and index tips should touch, distance %f", d)
	}

	open := OpenPalmLandmarks()
	if d := distance3D(open.Points[ThumbTip], open.Points[IndexTip]); d < 0.1 {
		t.Errorf("open palm: thumb and index tips should be apart, distance %f", d)
	}

	for name, h := range map[string]HandLandmarks{"open": open, "fist": fist, "point": point, "pinch": pinch, "thumbs": ThumbsUpLandmarks()} {
		if h.Handedness != "Right" || h.Score <= 0 {
			t.Errorf("%s: unexpected metadata %q %f", name, h.Handedness, h.Score)
		}
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("sees no hands by default", func(t *testing.T) {
		mock := NewMockDetector()
		hands, err := mock.Detect(nil)
		if err != nil || len(hands) != 0 {
			t.Errorf("expected no hands and no error, got %v, %v", hands, err)
		}
	})

	t.Run("queue is consumed before the steady result", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{OpenPalmLandmarks()})
		mock.Queue([]HandLandmarks{ClosedFistLandmarks()}, nil)

		first, _ := mock.Detect(nil)
		second, _ := mock.Detect(nil)
		third, _ := mock.Detect(nil)

		if len(first) != 1 || first[0].Points[IndexTip] != ClosedFistLandmarks().Points[IndexTip] {
			t.Errorf("expected queued fist first, got %v", first)
		}
		if second != nil {
			t.Errorf("expected queued empty frame second, got %v", second)
		}
		if len(third) != 1 || third[0].Points[IndexTip] != OpenPalmLandmarks().Points[IndexTip] {
			t.Errorf("expected steady open palm third, got %v", third)
		}
		if mock.Calls() != 3 {
			t.Errorf("expected 3 calls, got %d", mock.Calls())
		}
	})

	t.Run("error", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetError(errors.New("camera unplugged"))
		if _, err := mock.Detect(nil); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("close", func(t *testing.T) {
		mock := NewMockDetector()
		if err := mock.Close(); err != nil || !mock.Closed() {
			t.Error("expected closed mock")
		}
	})
}

func TestExchange(t *testing.T) {
	t.Run("frames the request and parses hands", func(t *testing.T) {
		var req bytes.Buffer
		resp := bufio.NewReader(strings.NewReader(
			`{"hands":[{"points":[{"x":0.5,"y":0.8,"z":0}],"handedness":"Left","score":0.8}]}` + "\n"))

		hands, err := exchange(&req, resp, []byte("jpeg-bytes"))
		if err != nil {
			t.Fatalf("exchange() error = %v", err)
		}

		if n := binary.BigEndian.Uint32(req.Bytes()[:4]); n != 10 {
			t.Errorf("expected length prefix 10, got %d", n)
		}
		if string(req.Bytes()[4:]) != "jpeg-bytes" {
			t.Errorf("unexpected payload %q", req.Bytes()[4:])
		}
		if len(hands) != 1 || hands[0].Handedness != "Left" || hands[0].Points[Wrist].Y != 0.8 {
			t.Errorf("unexpected hands %+v", hands)
		}
	})

	t.Run("service error is a response error", func(t *testing.T) {
		resp := bufio.NewReader(strings.NewReader(`{"hands":[],"error":"decode failed"}` + "\n"))
		_, err := exchange(io.Discard, resp, nil)
		if !errors.Is(err, errResponse) {
			t.Errorf("expected errResponse, got %v", err)
		}
	})

	t.Run("closed stream is a transport error", func(t *testing.T) {
		_, err := exchange(io.Discard, bufio.NewReader(strings.NewReader("")), nil)
		if err == nil || errors.Is(err, errResponse) {
			t.Errorf("expected transport error, got %v", err)
		}
	})
}
