// Package yolo runs YOLOv8 ONNX models through the OpenCV DNN module.
package yolo

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"github.com/teslashibe/go-livecam/internal/log"
	"gocv.io/x/gocv"
)

// Object is a detected object. Coordinates are normalized to 0-1, X/Y is the top-left corner.
type Object struct {
	X, Y       float64
	W, H       float64
	Confidence float64
	ClassID    int
	ClassName  string
}

// Center returns the center point of the box
func (o Object) Center() (x, y float64) {
	return o.X + o.W/2, o.Y + o.H/2
}

// Area returns the area of the bounding box
func (o Object) Area() float64 {
	return o.W * o.H
}

// Config holds detector configuration
type Config struct {
	ModelPath        string
	Classes          []string // names by class index; nil means COCO
	ConfidenceThresh float32
	NMSThresh        float32
	InputWidth       int
	InputHeight      int
}

// DefaultConfig returns defaults for a YOLOv8s model at 640x640.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/yolov8s.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// Detector runs a YOLOv8 model. Safe for concurrent use.
type Detector struct {
	net       gocv.Net
	config    Config
	inputSize image.Point
	logger    *slog.Logger
	mu        sync.Mutex
}

// New loads the ONNX model at cfg.ModelPath.
func New(cfg Config) (*Detector, error) {
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		d := DefaultConfig()
		cfg.InputWidth, cfg.InputHeight = d.InputWidth, d.InputHeight
	}
	if len(cfg.Classes) == 0 {
		cfg.Classes = COCOClasses
	}

	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Detector{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
		logger:    log.Component("yolo"),
	}, nil
}

// Detect finds objects in a JPEG image.
func (d *Detector) Detect(jpeg []byte) ([]Object, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	imgW := float32(img.Cols())
	imgH := float32(img.Rows())

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	// Output is [1, 4+classes, anchors]; rows/cols come from the squeezed 2-D view.
	sizes := output.Size()
	if len(sizes) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", sizes)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	cands := decode(data, sizes[1], sizes[2], d.config.ConfidenceThresh,
		imgW/float32(d.config.InputWidth), imgH/float32(d.config.InputHeight))
	if len(cands) == 0 {
		return nil, nil
	}

	boxes := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		boxes[i] = c.box
		scores[i] = c.score
	}
	keep := gocv.NMSBoxes(boxes, scores, d.config.ConfidenceThresh, d.config.NMSThresh)

	objects := make([]Object, 0, len(keep))
	for _, idx := range keep {
		objects = append(objects, cands[idx].object(imgW, imgH, d.config.Classes))
	}
	d.logger.Debug("detections", "count", len(objects))
	return objects, nil
}

// Classes returns the class names the detector reports.
func (d *Detector) Classes() []string {
	return d.config.Classes
}

// Close releases the detector resources
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
