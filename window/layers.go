package window

import (
	"golang.org/x/exp/slices"

	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/surface"
)

// Tier is a layer-shell layer. Windows sit between Bottom and Top
type Tier int

const (
	TierBackground = Tier(iota)
	TierBottom
	TierTop
	TierOverlay
)

func (t Tier) String() string {
	switch t {
	case TierBackground:
		return "background"
	case TierBottom:
		return "bottom"
	case TierTop:
		return "top"
	case TierOverlay:
		return "overlay"
	default:
		return "invalid"
	}
}

func (t Tier) Valid() bool {
	return t >= TierBackground && t <= TierOverlay
}

type LayerSurface struct {
	Surface   surface.ID
	Tier      Tier
	Namespace string
	// Output the surface is bound to
	Output string
	// Location relative to the output origin
	Location geom.Point
	// Keyboard interactivity requested by the client
	Interactive bool
}

// Layers keeps layer-shell surfaces per tier, in mapping order
type Layers struct {
	tiers [4][]*LayerSurface
}

func (l *Layers) Add(ls *LayerSurface) {
	if !ls.Tier.Valid() {
		ls.Tier = TierBackground
	}
	l.tiers[ls.Tier] = append(l.tiers[ls.Tier], ls)
}

func (l *Layers) Remove(id surface.ID) bool {
	for t := range l.tiers {
		i := slices.IndexFunc(l.tiers[t], func(ls *LayerSurface) bool { return ls.Surface == id })
		if i >= 0 {
			l.tiers[t] = slices.Delete(l.tiers[t], i, i+1)
			return true
		}
	}
	return false
}

func (l *Layers) Find(id surface.ID) (*LayerSurface, bool) {
	for _, tier := range l.tiers {
		for _, ls := range tier {
			if ls.Surface == id {
				return ls, true
			}
		}
	}
	return nil, false
}

// SetTier moves a surface to another tier. Placement within a tier is by mapping order only
func (l *Layers) SetTier(id surface.ID, t Tier) bool {
	if !t.Valid() {
		return false
	}
	ls, ok := l.Find(id)
	if !ok {
		return false
	}
	l.Remove(id)
	ls.Tier = t
	l.Add(ls)
	return true
}

// On returns the surfaces of one tier bound to the given output
func (l *Layers) On(t Tier, output string) []*LayerSurface {
	if !t.Valid() {
		return nil
	}
	var out []*LayerSurface
	for _, ls := range l.tiers[t] {
		if ls.Output == "" || ls.Output == output {
			out = append(out, ls)
		}
	}
	return out
}

// Interactive returns the topmost layer surface asking for keyboard input on the top or overlay tier
func (l *Layers) Interactive() (*LayerSurface, bool) {
	for _, t := range []Tier{TierOverlay, TierTop} {
		tier := l.tiers[t]
		for i := len(tier) - 1; i >= 0; i-- {
			if tier[i].Interactive {
				return tier[i], true
			}
		}
	}
	return nil, false
}
