// Package mapimage renders a dpm.Level's map as a standard image.Image,
// cropped to the bounding box of every cell an ancestry has ever
// touched, the way the reference renderer crops before writing its map
// file.
package mapimage

import (
	"image"
	"image/color"

	"github.com/js-arias/blind"

	"github.com/OpenSLAM-org/openslam-dpslam/dpm"
)

// unknownGray is the reserved shade for a cell no ancestor has ever
// observed.
const unknownGray = 255

// occupancyScale spreads occupancy probability p below unknownGray: a
// known cell renders as unknownGray - occupancyScale*p, so certain-empty
// renders white (255) and certain-occupied renders dark gray (25).
const occupancyScale = 230

// Marker overlays a single pixel at a particle's current pose, drawn
// over whatever occupancy color that cell would otherwise have.
type Marker struct {
	X, Y  float64
	Color color.Color
}

// Best, Runner and Ghost are the marker colors the reference renderer
// reserved for the leading hypothesis, a runner-up, and a particle that
// has since died, respectively.
var (
	Best   = color.RGBA{255, 0, 0, 255}
	Runner = color.RGBA{0, 255, 200, 255}
	Ghost  = color.RGBA{50, 150, 255, 255}
)

// Image renders one ancestry's view of a Level's map. Call Format
// before using it as an image.Image; Format scans the whole grid once
// to fix the crop, then resets the level's observation cache so the
// scan leaves no side effect on the next interval.
type Image struct {
	Level      *dpm.Level
	AncestryID int
	Markers    []Marker

	// Gradient colors occupancy probability. A nil Gradient renders
	// plain grayscale, matching the reference renderer; setting one
	// of the schemes below trades that for a colorblind-safe scale.
	Gradient Gradienter

	minX, minY, maxX, maxY int
	empty                  bool
}

// Gradienter colors a continuous occupancy probability in [0,1].
type Gradienter interface {
	Gradient(p float64) color.Color
}

// Incandescent renders occupancy with Paul Tol's incandescent
// sequential color scheme.
type Incandescent struct{}

func (Incandescent) Gradient(p float64) color.Color {
	return blind.Sequential(blind.Incandescent, clamp01(p))
}

// Iridescent renders occupancy with Paul Tol's iridescent sequential
// color scheme.
type Iridescent struct{}

func (Iridescent) Gradient(p float64) color.Color {
	return blind.Sequential(blind.Iridescent, clamp01(p))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Format scans the full grid for the bounding box of every cell
// AncestryID's lineage has touched.
func (im *Image) Format() {
	cfg := im.Level.Config()
	im.minX, im.minY = cfg.Width, cfg.Height
	im.maxX, im.maxY = -1, -1

	for x := 0; x < cfg.Width; x++ {
		for y := 0; y < cfg.Height; y++ {
			if _, known := im.Level.Occupancy(x, y, im.AncestryID); !known {
				continue
			}
			if x < im.minX {
				im.minX = x
			}
			if y < im.minY {
				im.minY = y
			}
			if x > im.maxX {
				im.maxX = x
			}
			if y > im.maxY {
				im.maxY = y
			}
		}
	}
	im.Level.ResetCache()
	im.empty = im.maxX < im.minX
}

func (im *Image) ColorModel() color.Model { return color.RGBAModel }

// Bounds reports the cropped image size. An Image with no observed
// cells at all reports an empty rectangle.
func (im *Image) Bounds() image.Rectangle {
	if im.empty {
		return image.Rect(0, 0, 0, 0)
	}
	return image.Rect(0, 0, im.maxX-im.minX+1, im.maxY-im.minY+1)
}

// At renders pixel (px,py). Row 0 is the map's greatest Y, so the
// image reads top-down the way the reference renderer's PPM scan did.
func (im *Image) At(px, py int) color.Color {
	x := im.minX + px
	y := im.maxY - py

	for _, m := range im.Markers {
		if int(m.X) == x && int(m.Y) == y {
			return m.Color
		}
	}

	p, known := im.Level.Occupancy(x, y, im.AncestryID)
	if !known {
		return color.RGBA{unknownGray, unknownGray, unknownGray, 255}
	}
	if im.Gradient != nil {
		return im.Gradient.Gradient(p)
	}
	g := uint8(unknownGray - p*occupancyScale)
	return color.RGBA{g, g, g, 255}
}
