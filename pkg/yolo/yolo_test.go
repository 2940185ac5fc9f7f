package yolo

import (
	"os"
	"testing"
)

// tensor builds a [features][anchors] tensor from per-anchor rows.
func tensor(anchors [][]float32) ([]float32, int, int) {
	features := len(anchors[0])
	n := len(anchors)
	data := make([]float32, features*n)
	for i, a := range anchors {
		for f, v := range a {
			data[f*n+i] = v
		}
	}
	return data, features, n
}

func TestDecode(t *testing.T) {
	data, features, anchors := tensor([][]float32{
		{320, 320, 64, 64, 0.9, 0.1}, // class 0, kept
		{100, 100, 20, 20, 0.2, 0.3}, // below threshold
		{200, 400, 40, 80, 0.1, 0.7}, // class 1, kept
	})

	got := decode(data, features, anchors, 0.5, 1, 1)
	if len(got) != 2 {
		t.Fatalf("candidates: got %d, want 2", len(got))
	}
	if got[0].classID != 0 || got[0].box.Min.X != 288 || got[0].box.Dx() != 64 {
		t.Errorf("first: %+v", got[0])
	}
	if got[1].classID != 1 || got[1].box.Min.Y != 360 || got[1].box.Dy() != 80 {
		t.Errorf("second: %+v", got[1])
	}
}

func TestDecodeScales(t *testing.T) {
	data, features, anchors := tensor([][]float32{{320, 320, 64, 64, 0.9}})
	got := decode(data, features, anchors, 0.5, 2, 0.5)
	if len(got) != 1 {
		t.Fatalf("candidates: got %d", len(got))
	}
	if got[0].box.Min.X != 576 || got[0].box.Min.Y != 144 {
		t.Errorf("box: %v", got[0].box)
	}
}

func TestDecodeRejectsShortData(t *testing.T) {
	if got := decode(make([]float32, 10), 6, 5, 0.5, 1, 1); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if got := decode(make([]float32, 40), 4, 10, 0.5, 1, 1); got != nil {
		t.Errorf("a tensor without class scores should decode to nil, got %v", got)
	}
}

func TestCandidateObject(t *testing.T) {
	data, features, anchors := tensor([][]float32{{320, 240, 64, 48, 0.1, 0.8}})
	c := decode(data, features, anchors, 0.5, 1, 1)[0]

	o := c.object(640, 480, []string{"pistol", "knife"})
	if o.ClassName != "knife" || o.ClassID != 1 {
		t.Errorf("class: %+v", o)
	}
	x, y := o.Center()
	if x < 0.499 || x > 0.501 || y < 0.499 || y > 0.501 {
		t.Errorf("center: %.3f, %.3f", x, y)
	}
	if area := o.Area(); area < 0.0099 || area > 0.0101 {
		t.Errorf("area: %.4f", area)
	}
}

func TestClassName(t *testing.T) {
	if got := ClassName(COCOClasses, 0); got != "person" {
		t.Errorf("got %q", got)
	}
	if got := ClassName([]string{"pistol"}, 3); got != "class_3" {
		t.Errorf("got %q", got)
	}
	if len(COCOClasses) != 80 {
		t.Errorf("COCO classes: %d", len(COCOClasses))
	}
}

func TestNewMissingModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = "does/not/exist.onnx"
	if _, err := New(cfg); err == nil {
		t.Error("expected error for missing model")
	}
}

func TestDetectWithModel(t *testing.T) {
	path := os.Getenv("YOLO_MODEL")
	if path == "" {
		t.Skip("YOLO_MODEL not set")
	}
	cfg := DefaultConfig()
	cfg.ModelPath = path
	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	if _, err := d.Detect([]byte("not a jpeg")); err == nil {
		t.Error("expected decode error")
	}
}
