package yolo

import (
	"fmt"
	"image"
)

type candidate struct {
	box     image.Rectangle // pixels in the source image
	score   float32
	classID int
}

// decode walks a YOLOv8 output tensor laid out as [features][anchors], where
// features is 4 box values (cx, cy, w, h) followed by one score per class.
// scaleX/scaleY map model input pixels to source image pixels.
func decode(data []float32, features, anchors int, thresh, scaleX, scaleY float32) []candidate {
	if features < 5 || len(data) < features*anchors {
		return nil
	}

	var out []candidate
	for i := 0; i < anchors; i++ {
		best := float32(0)
		bestID := 0
		for c := 4; c < features; c++ {
			if s := data[c*anchors+i]; s > best {
				best = s
				bestID = c - 4
			}
		}
		if best < thresh {
			continue
		}

		cx := data[0*anchors+i]
		cy := data[1*anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

		out = append(out, candidate{
			box: image.Rect(
				int((cx-w/2)*scaleX), int((cy-h/2)*scaleY),
				int((cx+w/2)*scaleX), int((cy+h/2)*scaleY),
			),
			score:   best,
			classID: bestID,
		})
	}
	return out
}

func (c candidate) object(imgW, imgH float32, classes []string) Object {
	return Object{
		X:          float64(c.box.Min.X) / float64(imgW),
		Y:          float64(c.box.Min.Y) / float64(imgH),
		W:          float64(c.box.Dx()) / float64(imgW),
		H:          float64(c.box.Dy()) / float64(imgH),
		Confidence: float64(c.score),
		ClassID:    c.classID,
		ClassName:  ClassName(classes, c.classID),
	}
}

// ClassName returns classes[id], or "class_<id>" when the list is too short.
func ClassName(classes []string, id int) string {
	if id >= 0 && id < len(classes) {
		return classes[id]
	}
	return fmt.Sprintf("class_%d", id)
}

// COCOClasses contains the 80 COCO class names
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}
