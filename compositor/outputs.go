package compositor

import (
	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/consolation/bridge/outputmgmt"
	"github.com/mstarongithub/consolation/common/ipc"
	"github.com/mstarongithub/consolation/output"
)

// AddOutput registers a new output and applies its config file section, if any
func (s *State) AddOutput(o *output.Output) error {
	if err := s.outputs.Add(o); err != nil {
		return err
	}
	if oc, ok := s.conf.Output(o.Name); ok {
		cfg, err := oc.Resolve(o)
		if err == nil {
			err = s.outputs.Apply([]output.Config{cfg})
		}
		if err != nil {
			logrus.WithError(err).WithField("output", o.Name).Warningln("Ignoring output configuration")
		}
	}
	s.outputsChanged()
	return nil
}

func (s *State) RemoveOutput(name string) {
	if _, ok := s.outputs.Remove(name); ok {
		s.outputsChanged()
	}
}

// ConfigureOutputs runs one output-management transaction on behalf of the
// compositor. build names the heads, l hears how it ended
func (s *State) ConfigureOutputs(l outputmgmt.Listener, build func(conf *outputmgmt.Configuration) error) error {
	s.outputMgr.Refresh(s.outputs)
	conf := s.outputMgr.Configure(l)
	if err := build(conf); err != nil {
		conf.Destroy()
		return err
	}
	gen := s.outputs.Generation()
	if err := conf.Apply(s.outputs); err != nil {
		return err
	}
	if s.outputs.Generation() != gen {
		s.outputsChanged()
	}
	return nil
}

// ApplyOutputs commits a whole output configuration at once
func (s *State) ApplyOutputs(configs []output.Config) error {
	if err := s.outputs.Apply(configs); err != nil {
		return err
	}
	s.outputsChanged()
	return nil
}

// outputsChanged resizes every fullscreen window to the new output size
func (s *State) outputsChanged() {
	for _, w := range s.stack.TopToBottom() {
		s.configure(w)
	}
	s.notify(ipc.Event{Kind: "outputs"})
}

// focusedOutput is the output shortcuts act on
func (s *State) focusedOutput() (*output.Output, bool) {
	return s.outputs.Primary()
}

func (s *State) adjustScale(delta float64) {
	o, ok := s.focusedOutput()
	if !ok {
		return
	}
	scale := o.Scale + delta
	if scale < minScale {
		scale = minScale
	}
	if scale == o.Scale {
		return
	}
	if err := s.ApplyOutputs([]output.Config{{Name: o.Name, Enabled: true, Scale: &scale}}); err != nil {
		logrus.WithError(err).WithField("output", o.Name).Warningln("Failed to change scale")
		return
	}
	logrus.WithFields(logrus.Fields{"output": o.Name, "scale": scale}).Infoln("Output scale changed")
}

func (s *State) rotate() {
	o, ok := s.focusedOutput()
	if !ok {
		return
	}
	t := o.Transform.Next()
	if err := s.ApplyOutputs([]output.Config{{Name: o.Name, Enabled: true, Transform: &t}}); err != nil {
		logrus.WithError(err).WithField("output", o.Name).Warningln("Failed to rotate output")
		return
	}
	logrus.WithFields(logrus.Fields{"output": o.Name, "transform": t.String()}).Infoln("Output rotated")
}

// OutputInfo describes every output for the repl
func (s *State) OutputInfo() []ipc.OutputInfo {
	var out []ipc.OutputInfo
	for _, o := range s.outputs.All() {
		info := ipc.OutputInfo{
			Name:        o.Name,
			Description: o.Description(),
			Enabled:     o.Enabled,
			Scale:       o.Scale,
			Transform:   o.Transform.String(),
			X:           o.Position.X,
			Y:           o.Position.Y,
		}
		if m, ok := o.Mode(); ok {
			info.Mode = &ipc.OutputMode{Width: m.Width, Height: m.Height, RefreshRate: m.Refresh, Preferred: m.Preferred}
		}
		out = append(out, info)
	}
	return out
}
