package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gitlab.com/mstarongitlab/goutils/sliceutils"
	"golang.org/x/exp/slices"

	"github.com/mstarongithub/consolation/geom"
)

var (
	ErrDuplicateName    = errors.New("output name already registered")
	ErrUnknownOutput    = errors.New("unknown output")
	ErrNoEnabledOutput  = errors.New("at least one output has to stay enabled")
	ErrInvalidMode      = errors.New("invalid mode")
	ErrInvalidScale     = errors.New("invalid scale")
	ErrInvalidTransform = errors.New("invalid transform")
)

// Config is the requested state of one output. Nil fields keep the current value
type Config struct {
	Name      string
	Enabled   bool
	Mode      *int
	Custom    *Mode
	Scale     *float64
	Transform *geom.Transform
	Position  *geom.Point
	VRR       *bool
}

// Registry owns every output in creation order
type Registry struct {
	outputs []*Output
	nextID  ID
	// Bumped on every change, used to notice when published state is outdated
	generation uint64
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Generation() uint64 {
	return r.generation
}

func (r *Registry) changed() {
	r.generation++
}

// Add registers a new output. Outputs without a current mode get their preferred one
func (r *Registry) Add(o *Output) error {
	if _, ok := r.Find(o.Name); ok {
		return fmt.Errorf("%s: %w", o.Name, ErrDuplicateName)
	}
	r.nextID++
	o.ID = r.nextID
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.CurrentMode < 0 || o.CurrentMode >= len(o.Modes) {
		o.CurrentMode = o.PreferredMode()
	}
	r.outputs = append(r.outputs, o)
	r.changed()
	logrus.WithFields(logrus.Fields{
		"name":     o.Name,
		"geometry": o.Geometry(),
	}).Infoln("Output added")
	return nil
}

func (r *Registry) Remove(name string) (*Output, bool) {
	i := slices.IndexFunc(r.outputs, func(o *Output) bool { return strings.EqualFold(o.Name, name) })
	if i < 0 {
		return nil, false
	}
	o := r.outputs[i]
	r.outputs = slices.Delete(r.outputs, i, i+1)
	r.changed()
	logrus.WithField("name", o.Name).Infoln("Output removed")
	return o, true
}

// Find looks an output up by name, ignoring case
func (r *Registry) Find(name string) (*Output, bool) {
	for _, o := range r.outputs {
		if strings.EqualFold(o.Name, name) {
			return o, true
		}
	}
	return nil, false
}

func (r *Registry) ByID(id ID) (*Output, bool) {
	for _, o := range r.outputs {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

func (r *Registry) All() []*Output {
	return r.outputs
}

func (r *Registry) Enabled() []*Output {
	return sliceutils.Filter(r.outputs, func(o *Output) bool {
		return o.Enabled
	})
}

// Primary is the first enabled output
func (r *Registry) Primary() (*Output, bool) {
	for _, o := range r.outputs {
		if o.Enabled {
			return o, true
		}
	}
	return nil, false
}

// At returns the enabled output containing the logical point
func (r *Registry) At(p geom.PointF) (*Output, bool) {
	for _, o := range r.outputs {
		if o.Enabled && o.Geometry().ContainsF(p) {
			return o, true
		}
	}
	return nil, false
}

// Snapshot deep copies every output
func (r *Registry) Snapshot() []*Output {
	out := make([]*Output, len(r.outputs))
	for i, o := range r.outputs {
		out[i] = o.Clone()
	}
	return out
}

// Touch marks the registry as changed after a direct mutation of an output
func (r *Registry) Touch() {
	r.changed()
}

// resolve computes the state the given configs would produce without touching the registry
func (r *Registry) resolve(configs []Config) ([]*Output, error) {
	next := r.Snapshot()
	for _, c := range configs {
		i := slices.IndexFunc(next, func(o *Output) bool { return strings.EqualFold(o.Name, c.Name) })
		if i < 0 {
			return nil, fmt.Errorf("%s: %w", c.Name, ErrUnknownOutput)
		}
		o := next[i]
		o.Enabled = c.Enabled
		if !c.Enabled {
			continue
		}
		if c.Mode != nil {
			if *c.Mode < 0 || *c.Mode >= len(o.Modes) {
				return nil, fmt.Errorf("%s mode %d: %w", o.Name, *c.Mode, ErrInvalidMode)
			}
			o.CurrentMode = *c.Mode
		}
		if c.Custom != nil {
			idx := o.FindMode(c.Custom.Width, c.Custom.Height, c.Custom.Refresh)
			if idx < 0 {
				return nil, fmt.Errorf("%s custom mode %s: %w", o.Name, c.Custom, ErrInvalidMode)
			}
			o.CurrentMode = idx
		}
		if c.Scale != nil {
			if *c.Scale <= 0 {
				return nil, fmt.Errorf("%s scale %f: %w", o.Name, *c.Scale, ErrInvalidScale)
			}
			o.Scale = *c.Scale
		}
		if c.Transform != nil {
			if !c.Transform.Valid() {
				return nil, fmt.Errorf("%s: %w", o.Name, ErrInvalidTransform)
			}
			o.Transform = *c.Transform
		}
		if c.Position != nil {
			o.Position = *c.Position
		}
		if c.VRR != nil {
			o.VRR = *c.VRR
		}
		if _, ok := o.Mode(); !ok {
			return nil, fmt.Errorf("%s has no usable mode: %w", o.Name, ErrInvalidMode)
		}
	}
	if !slices.ContainsFunc(next, func(o *Output) bool { return o.Enabled }) {
		return nil, ErrNoEnabledOutput
	}
	return next, nil
}

// Test checks whether the configs could be applied
func (r *Registry) Test(configs []Config) error {
	_, err := r.resolve(configs)
	return err
}

// Apply commits the configs all at once. On error nothing changes.
// Outputs not named in configs keep their state
func (r *Registry) Apply(configs []Config) error {
	next, err := r.resolve(configs)
	if err != nil {
		return err
	}
	for i, o := range next {
		*r.outputs[i] = *o
	}
	r.changed()
	logrus.WithField("outputs", len(configs)).Infoln("Applied output configuration")
	return nil
}
