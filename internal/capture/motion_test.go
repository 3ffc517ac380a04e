package capture

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

func TestNewMotionDetector_DefaultThreshold(t *testing.T) {
	md := NewMotionDetector(0)
	defer md.Close()

	if got := md.Threshold(); got != DefaultMotionThreshold {
		t.Errorf("Threshold() = %v, want %v", got, DefaultMotionThreshold)
	}
	md.SetThreshold(-1)
	if got := md.Threshold(); got != DefaultMotionThreshold {
		t.Errorf("negative threshold should be ignored, got %v", got)
	}
	md.SetThreshold(2.5)
	if got := md.Threshold(); got != 2.5 {
		t.Errorf("Threshold() = %v, want 2.5", got)
	}
}

func TestMotionDetector_Detect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires OpenCV")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	black := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer black.Close()

	moved := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer moved.Close()
	gocv.Rectangle(&moved, image.Rect(40, 30, 120, 90), color.RGBA{255, 255, 255, 0}, -1)

	if motion, _ := md.Detect(&black); motion {
		t.Error("first frame only sets the baseline")
	}
	if motion, pct := md.Detect(&black); motion || pct != 0 {
		t.Errorf("identical frame: motion=%v pct=%v", motion, pct)
	}
	motion, pct := md.Detect(&moved)
	if !motion {
		t.Errorf("expected motion, changed %.2f%%", pct)
	}

	md.Reset()
	if motion, _ := md.Detect(&black); motion {
		t.Error("frame after Reset only sets the baseline")
	}
}

func TestMotionDetector_NilFrame(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	if motion, pct := md.Detect(nil); motion || pct != 0 {
		t.Errorf("Detect(nil) = (%v, %v)", motion, pct)
	}
}
