package engine

import (
	"github.com/guidepost-labs/guidepost-engine/pkg/models"
)

// Geometry constants, in CSS pixels.
const (
	// TooltipOffset is the gap between the target element and the tooltip.
	TooltipOffset = 20
	// ViewportPadding is the minimum distance the tooltip keeps from every
	// viewport edge.
	ViewportPadding = 10
)

// Rect is an axis-aligned box in viewport coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// CenterX returns the horizontal center of the rect.
func (r Rect) CenterX() float64 { return r.X + r.Width/2 }

// CenterY returns the vertical center of the rect.
func (r Rect) CenterY() float64 { return r.Y + r.Height/2 }

// Size is the rendered tooltip box.
type Size struct {
	Width  float64
	Height float64
}

// Viewport describes the visible window. ScrollY is the current document
// scroll offset.
type Viewport struct {
	Width   float64
	Height  float64
	ScrollY float64
}

// Layout is a solved tooltip placement.
type Layout struct {
	// Tooltip is the final tooltip box in viewport coordinates, clamped
	// inside the viewport.
	Tooltip Rect
	// Placement is the side the tooltip ended up on, or modal.
	Placement string
	// ArrowHidden is set for modal steps and unresolved targets.
	ArrowHidden bool
	// ScrollTo, when non-nil, is the document scroll offset that centers
	// the target vertically. Nil when the target is already fully visible.
	ScrollTo *float64
}

// Solve places a tooltip of the given size against target. A nil target
// (modal step or selector that matched nothing) centers the tooltip and
// hides the arrow. Auto placement tries top, bottom, left, right in that
// order and takes the first side with room for the tooltip plus
// TooltipOffset, falling back to bottom.
func Solve(target *Rect, position string, tooltip Size, vp Viewport) Layout {
	if target == nil || position == models.PositionModal {
		return Layout{
			Tooltip: Rect{
				X:      (vp.Width - tooltip.Width) / 2,
				Y:      (vp.Height - tooltip.Height) / 2,
				Width:  tooltip.Width,
				Height: tooltip.Height,
			},
			Placement:   models.PositionModal,
			ArrowHidden: true,
		}
	}

	placement := position
	if placement == models.PositionAuto || !models.ValidPosition(placement) {
		placement = autoPlacement(*target, tooltip, vp)
	}

	box := place(*target, placement, tooltip)
	box = clamp(box, vp)

	return Layout{
		Tooltip:   box,
		Placement: placement,
		ScrollTo:  scrollTarget(*target, vp),
	}
}

func autoPlacement(target Rect, tooltip Size, vp Viewport) string {
	need := func(side float64, extent float64) bool {
		return side >= extent+TooltipOffset
	}
	switch {
	case need(target.Y, tooltip.Height):
		return models.PositionTop
	case need(vp.Height-(target.Y+target.Height), tooltip.Height):
		return models.PositionBottom
	case need(target.X, tooltip.Width):
		return models.PositionLeft
	case need(vp.Width-(target.X+target.Width), tooltip.Width):
		return models.PositionRight
	}
	return models.PositionBottom
}

func place(target Rect, placement string, tooltip Size) Rect {
	box := Rect{Width: tooltip.Width, Height: tooltip.Height}
	switch placement {
	case models.PositionTop:
		box.X = target.CenterX() - tooltip.Width/2
		box.Y = target.Y - tooltip.Height - TooltipOffset
	case models.PositionLeft:
		box.X = target.X - tooltip.Width - TooltipOffset
		box.Y = target.CenterY() - tooltip.Height/2
	case models.PositionRight:
		box.X = target.X + target.Width + TooltipOffset
		box.Y = target.CenterY() - tooltip.Height/2
	default: // bottom
		box.X = target.CenterX() - tooltip.Width/2
		box.Y = target.Y + target.Height + TooltipOffset
	}
	return box
}

func clamp(box Rect, vp Viewport) Rect {
	box.X = clampAxis(box.X, box.Width, vp.Width)
	box.Y = clampAxis(box.Y, box.Height, vp.Height)
	return box
}

func clampAxis(pos, extent, limit float64) float64 {
	max := limit - extent - ViewportPadding
	if pos > max {
		pos = max
	}
	if pos < ViewportPadding {
		pos = ViewportPadding
	}
	return pos
}

// scrollTarget returns the scroll offset that centers the target vertically,
// or nil if the target is already fully inside the viewport.
func scrollTarget(target Rect, vp Viewport) *float64 {
	if target.Y >= 0 && target.Y+target.Height <= vp.Height {
		return nil
	}
	offset := vp.ScrollY + target.CenterY() - vp.Height/2
	if offset < 0 {
		offset = 0
	}
	return &offset
}
