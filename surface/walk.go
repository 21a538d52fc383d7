package surface

import (
	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/render"
)

// Fit scales a whole surface tree into a destination rectangle, keeping its aspect ratio
type Fit struct {
	// Physical destination, in output local pixels
	Dest geom.RectF
	// Logical bounding box of the content to fit
	BBox geom.Rect
}

type WalkParams struct {
	// Absolute logical location of the root surface
	Location geom.Point
	// Output scale used in pixel exact mode
	Scale float64
	// When set, placement is scaled into Fit.Dest instead of pixel exact
	Fit   *Fit
	Alpha float64
}

type placed struct {
	surf *Surface
	loc  geom.Point
}

// visible collects the displayable nodes below root in draw order, parent first.
// A node without texture hides its whole subtree
func (st *Store) visible(root ID, loc geom.Point) []placed {
	var out []placed
	s, ok := st.surfaces[root]
	if !ok {
		return nil
	}
	stack := []placed{{surf: s, loc: loc}}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !n.surf.Displayable() {
			continue
		}
		out = append(out, n)
		// Push in reverse so the bottom-most child is emitted first
		for i := len(n.surf.children) - 1; i >= 0; i-- {
			child, ok := st.surfaces[n.surf.children[i]]
			if !ok {
				continue
			}
			offset := geom.Point{}
			if sub, ok := child.role.(*Subsurface); ok {
				offset = sub.Offset
			}
			stack = append(stack, placed{surf: child, loc: n.loc.Add(offset)})
		}
	}
	return out
}

// Walk produces the draw operations for the tree rooted at root
func (st *Store) Walk(root ID, p WalkParams) []render.DrawOp {
	nodes := st.visible(root, p.Location)
	if len(nodes) == 0 {
		return nil
	}
	alpha := p.Alpha
	if alpha == 0 {
		alpha = 1
	}

	var fitScale float64
	var fitOffset geom.PointF
	if p.Fit != nil {
		fitScale, fitOffset = geom.Fit(p.Fit.BBox.Size(), p.Fit.Dest)
		if fitScale == 0 {
			return nil
		}
	}
	outScale := p.Scale
	if outScale <= 0 {
		outScale = 1
	}

	ops := make([]render.DrawOp, 0, len(nodes))
	for _, n := range nodes {
		size := n.surf.Size()
		var dst geom.RectF
		if p.Fit != nil {
			dst = geom.RectF{
				X: p.Fit.Dest.X + fitOffset.X + float64(n.loc.X-p.Fit.BBox.X)*fitScale,
				Y: p.Fit.Dest.Y + fitOffset.Y + float64(n.loc.Y-p.Fit.BBox.Y)*fitScale,
				W: float64(size.W) * fitScale,
				H: float64(size.H) * fitScale,
			}
		} else {
			pos := n.loc.Scale(outScale)
			phys := size.Scale(outScale)
			dst = geom.RectF{X: float64(pos.X), Y: float64(pos.Y), W: float64(phys.W), H: float64(phys.H)}
		}
		bs := n.surf.BufferSize()
		ops = append(ops, render.DrawOp{
			Texture:   n.surf.texture,
			Src:       geom.Rect{W: bs.W, H: bs.H},
			Dst:       dst,
			Transform: n.surf.current.transform,
			Alpha:     alpha,
			Surface:   uint64(n.surf.id),
		})
	}
	return ops
}

// Extents is the logical bounding box of every displayable surface in the tree,
// relative to the root surface origin
func (st *Store) Extents(root ID) geom.Rect {
	var r geom.Rect
	for _, n := range st.visible(root, geom.Point{}) {
		r = r.Union(geom.Rect{X: n.loc.X, Y: n.loc.Y, W: n.surf.Size().W, H: n.surf.Size().H})
	}
	return r
}

// SurfaceAt finds the topmost displayable surface of the tree containing point.
// It returns the surface and the point in its local coordinates
func (st *Store) SurfaceAt(root ID, loc geom.Point, point geom.PointF) (ID, geom.PointF, bool) {
	nodes := st.visible(root, loc)
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		size := n.surf.Size()
		r := geom.Rect{X: n.loc.X, Y: n.loc.Y, W: size.W, H: size.H}
		if r.ContainsF(point) {
			return n.surf.id, point.Sub(n.loc.ToF()), true
		}
	}
	return 0, geom.PointF{}, false
}

// Tree lists the root and every subsurface below it, reachable or not displayable
func (st *Store) Tree(root ID) []ID {
	var out []ID
	work := []ID{root}
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		s, ok := st.surfaces[id]
		if !ok {
			continue
		}
		out = append(out, id)
		work = append(work, s.children...)
	}
	return out
}
