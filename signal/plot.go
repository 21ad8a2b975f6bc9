package signal

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"gocv.io/x/gocv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Plotter renders a window of samples as a line chart
type Plotter struct {
	Width  int // pixels
	Height int // pixels
	Title  string
	// ShowSmoothed adds the filtered trace as a dashed line
	ShowSmoothed bool
}

// NewPlotter returns a plotter with the default chart layout
func NewPlotter(width, height int) *Plotter {
	return &Plotter{
		Width:        width,
		Height:       height,
		Title:        "Respiration Signal",
		ShowSmoothed: true,
	}
}

var (
	rawColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	smoothColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// build lays out the chart. The y axis spans the frame height so the
// trace position matches the image row of the tracked points.
func (pl *Plotter) build(samples []Sample, frameHeight int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = pl.Title
	p.X.Label.Text = "frame"
	p.Y.Label.Text = "y (px)"

	if len(samples) > 0 {
		raw := make(plotter.XYs, len(samples))
		smooth := make(plotter.XYs, len(samples))
		for i, s := range samples {
			raw[i].X = float64(s.Frame)
			raw[i].Y = s.Value
			smooth[i].X = float64(s.Frame)
			smooth[i].Y = s.Smoothed
		}

		line, err := plotter.NewLine(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to build signal line: %w", err)
		}
		line.LineStyle.Color = rawColor
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)

		if pl.ShowSmoothed {
			sline, err := plotter.NewLine(smooth)
			if err != nil {
				return nil, fmt.Errorf("failed to build smoothed line: %w", err)
			}
			sline.LineStyle.Color = smoothColor
			sline.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
			p.Add(sline)
		}

		p.X.Min = float64(samples[0].Frame)
		p.X.Max = float64(samples[len(samples)-1].Frame)
		if p.X.Max <= p.X.Min {
			p.X.Max = p.X.Min + 1
		}
	} else {
		p.X.Min, p.X.Max = 0, 1
	}

	p.Y.Min = 0
	p.Y.Max = float64(frameHeight)
	if p.Y.Max <= 0 {
		p.Y.Max = 1
	}
	return p, nil
}

func (pl *Plotter) canvas(samples []Sample, frameHeight int) (*vgimg.Canvas, error) {
	if pl.Width <= 0 || pl.Height <= 0 {
		return nil, fmt.Errorf("invalid plot size %dx%d", pl.Width, pl.Height)
	}
	p, err := pl.build(samples, frameHeight)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, pl.Width, pl.Height))
	c := vgimg.NewWith(vgimg.UseImage(img))
	p.Draw(draw.New(c))
	return c, nil
}

// Render draws the chart into an image of Width x Height pixels
func (pl *Plotter) Render(samples []Sample, frameHeight int) (image.Image, error) {
	c, err := pl.canvas(samples, frameHeight)
	if err != nil {
		return nil, err
	}
	return c.Image(), nil
}

// RenderMat draws the chart into a BGR Mat for display next to the video.
// The caller owns the returned Mat.
func (pl *Plotter) RenderMat(samples []Sample, frameHeight int) (gocv.Mat, error) {
	img, err := pl.Render(samples, frameHeight)
	if err != nil {
		return gocv.NewMat(), err
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to convert plot image: %w", err)
	}
	return mat, nil
}

// WritePNG encodes the chart as PNG
func (pl *Plotter) WritePNG(w io.Writer, samples []Sample, frameHeight int) error {
	c, err := pl.canvas(samples, frameHeight)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode plot: %w", err)
	}
	return nil
}
