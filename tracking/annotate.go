package tracking

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var trackingGreen = color.RGBA{0, 255, 0, 255}

// drawFeatures marks every tracked point with a filled dot
func drawFeatures(img *gocv.Mat, pts []gocv.Point2f) {
	for _, p := range pts {
		gocv.Circle(img, image.Pt(int(p.X), int(p.Y)), 3, trackingGreen, -1)
	}
}

// drawROI outlines the fixed tracking region
func drawROI(img *gocv.Mat, roi ROI) {
	gocv.Rectangle(img, roi.Rect(), trackingGreen, 2)
}
