// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package console implements the commands of the interactive repl. Every
// command runs as a task on the compositor loop, the repl goroutine only waits
// for the answer.
package console

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/consolation/bridge/outputmgmt"
	"github.com/mstarongithub/consolation/bridge/toplevel"
	"github.com/mstarongithub/consolation/common/ipc"
	"github.com/mstarongithub/consolation/compositor"
	"github.com/mstarongithub/consolation/config"
	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/input"
	"github.com/mstarongithub/consolation/output"
	"github.com/mstarongithub/consolation/repl"
	"github.com/mstarongithub/consolation/util"
	"github.com/mstarongithub/consolation/window"
)

var (
	// Returned by Handle on "quit" so the repl stops
	ErrQuit    = errors.New("normal stop")
	ErrTimeout = errors.New("compositor loop did not answer")
)

const helpText = `Commands:
  run <command> [args...]          Start a program on the compositor
  quit                             Stop the compositor
  inspect stack|outputs|focus|menu Print compositor state as json
  output <name> enable|disable
  output <name> scale <factor>
  output <name> mode <index|WxH[@Hz]>
  output <name> transform <normal|90|180|270|flipped...>
  menu open|close|toggle|up|down|select|back
  toplevels                        Print what taskbars see
  toplevel <id> activate|close|minimize|unminimize|maximize|unmaximize|fullscreen|unfullscreen
  focus <window id>                Same as toplevel <id> activate
  close <window id>                Same as toplevel <id> close
  watch                            Print window events as they happen
  help`

// Console answers repl lines against a running compositor
type Console struct {
	state *compositor.State
	// How long a command waits for the loop
	Timeout time.Duration
	// Name of the event receiver once watch was used
	watching string
}

func New(state *compositor.State) *Console {
	return &Console{state: state, Timeout: 5 * time.Second}
}

// call runs f on the loop and waits for its answer
func (c *Console) call(f func(s *compositor.State) (string, error)) (string, error) {
	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	err := c.state.Post(func(s *compositor.State) {
		out, err := f(s)
		done <- result{out, err}
	})
	if err != nil {
		return "", err
	}
	timer := time.NewTimer(c.Timeout)
	defer timer.Stop()
	select {
	case res := <-done:
		return res.out, res.err
	case <-timer.C:
		return "", ErrTimeout
	}
}

func toJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Handle is a repl.MessageHandler. Failed commands are answered with the
// error text, only quit ends the repl
func (c *Console) Handle(line string, r *repl.Repl) (string, error) {
	cmd, rest := util.Command(line)

	var (
		out string
		err error
	)
	switch cmd {
	case "":
		return "", nil
	case "help":
		return helpText, nil
	case "quit":
		_, err = c.call(func(s *compositor.State) (string, error) {
			s.Stop()
			return "", nil
		})
		if err != nil {
			logrus.WithError(err).Warningln("Compositor didn't take the quit request")
		}
		return "Quitting", ErrQuit
	case "run":
		out, err = c.run(rest)
	case "inspect":
		out, err = c.inspect(rest)
	case "output":
		out, err = c.output(rest)
	case "menu":
		out, err = c.menu(rest)
	case "toplevels":
		out, err = c.toplevels()
	case "toplevel":
		var id, verb string
		util.Unpack(strings.Fields(rest), &id, &verb)
		out, err = c.toplevel(id, verb)
	case "focus":
		out, err = c.toplevel(rest, "activate")
	case "close":
		out, err = c.toplevel(rest, "close")
	case "watch":
		out, err = c.watch(r)
	default:
		return "Unknown command, try help", nil
	}
	if err != nil {
		logrus.WithError(err).WithField("command", line).Debugln("Console command failed")
		return "Error: " + err.Error(), nil
	}
	return out, nil
}

func (c *Console) run(cmdString string) (string, error) {
	argv := strings.Fields(cmdString)
	if len(argv) == 0 {
		return "", errors.New("nothing to run")
	}
	return c.call(func(s *compositor.State) (string, error) {
		s.Perform(input.Action{Kind: input.ActionRun, Command: argv})
		return "Running " + argv[0], nil
	})
}

func (c *Console) inspect(target string) (string, error) {
	return c.call(func(s *compositor.State) (string, error) {
		switch target {
		case "stack", "":
			return toJSON(s.StackInfo())
		case "outputs":
			return toJSON(s.OutputInfo())
		case "focus", "cursor":
			return toJSON(s.FocusInfo())
		case "menu":
			return toJSON(s.MenuInfo())
		default:
			return "", fmt.Errorf("can't inspect %q", target)
		}
	})
}

// outcome records how an output configuration ended
type outcome string

func (o *outcome) Succeeded() { *o = "succeeded" }
func (o *outcome) Failed()    { *o = "failed" }
func (o *outcome) Cancelled() { *o = "cancelled" }

// headSetter changes one property of a head in an output configuration
type headSetter func(o *output.Output, h *outputmgmt.Head) error

// output changes one output through a single output-management transaction
func (c *Console) output(args string) (string, error) {
	var name, verb, value string
	util.Unpack(strings.Fields(args), &name, &verb, &value)
	if name == "" || verb == "" {
		return "", errors.New("usage: output <name> <enable|disable|scale|mode|transform> [value]")
	}
	var (
		enable *bool
		set    headSetter
	)
	switch verb {
	case "enable", "disable":
		on := verb == "enable"
		enable = &on
	case "scale":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return "", fmt.Errorf("scale %q: %w", value, err)
		}
		set = func(_ *output.Output, h *outputmgmt.Head) error { return h.SetScale(f) }
	case "mode":
		if idx, err := strconv.Atoi(value); err == nil {
			set = func(_ *output.Output, h *outputmgmt.Head) error { return h.SetMode(idx) }
			break
		}
		m, err := config.ParseMode(value)
		if err != nil {
			return "", err
		}
		set = func(o *output.Output, h *outputmgmt.Head) error {
			idx := o.FindMode(m.Width, m.Height, m.Refresh)
			if idx < 0 {
				return fmt.Errorf("%s has no mode %s: %w", o.Name, m, outputmgmt.ErrInvalidMode)
			}
			return h.SetMode(idx)
		}
	case "transform":
		t, ok := geom.ParseTransform(value)
		if !ok {
			return "", fmt.Errorf("%q: %w", value, config.ErrBadTransform)
		}
		set = func(_ *output.Output, h *outputmgmt.Head) error { return h.SetTransform(t) }
	default:
		return "", fmt.Errorf("unknown output setting %q", verb)
	}
	return c.call(func(s *compositor.State) (string, error) {
		o, ok := s.Outputs().Find(name)
		if !ok {
			return "", fmt.Errorf("output %q not found", name)
		}
		on := o.Enabled
		if enable != nil {
			on = *enable
		}
		var result outcome
		err := s.ConfigureOutputs(&result, func(conf *outputmgmt.Configuration) error {
			if !on {
				if set != nil {
					return fmt.Errorf("output %q is disabled", o.Name)
				}
				return conf.DisableHead(o.Name)
			}
			h, err := conf.EnableHead(o.Name)
			if err != nil || set == nil {
				return err
			}
			return set(o, h)
		})
		if err != nil {
			return "", err
		}
		if result != "succeeded" {
			return "", fmt.Errorf("output configuration %s", result)
		}
		return "Applied", nil
	})
}

func (c *Console) menu(verb string) (string, error) {
	actions := map[string]input.ActionKind{
		"toggle": input.ActionToggleMenu,
		"up":     input.ActionMenuUp,
		"down":   input.ActionMenuDown,
		"select": input.ActionMenuSelect,
		"back":   input.ActionMenuBack,
	}
	kind, ok := actions[verb]
	if !ok && verb != "open" && verb != "close" {
		return "", fmt.Errorf("unknown menu action %q", verb)
	}
	return c.call(func(s *compositor.State) (string, error) {
		switch {
		case ok:
			s.Perform(input.Action{Kind: kind})
		case (verb == "open") != s.Composer().MenuOpen():
			s.Perform(input.Action{Kind: input.ActionToggleMenu})
		}
		return toJSON(s.MenuInfo())
	})
}

var toplevelRequests = map[string]toplevel.RequestKind{
	"activate":     toplevel.RequestActivate,
	"close":        toplevel.RequestClose,
	"fullscreen":   toplevel.RequestSetFullscreen,
	"unfullscreen": toplevel.RequestUnsetFullscreen,
	"maximize":     toplevel.RequestSetMaximized,
	"unmaximize":   toplevel.RequestUnsetMaximized,
	"minimize":     toplevel.RequestSetMinimized,
	"unminimize":   toplevel.RequestUnsetMinimized,
}

// toplevel acts like a taskbar would, through the foreign toplevel bridge
func (c *Console) toplevel(arg, verb string) (string, error) {
	n, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return "", fmt.Errorf("window id %q: %w", arg, err)
	}
	kind, ok := toplevelRequests[verb]
	if !ok {
		return "", fmt.Errorf("unknown toplevel request %q", verb)
	}
	id := window.ID(n)
	return c.call(func(s *compositor.State) (string, error) {
		if !s.Toplevels().Handle(s, id, toplevel.Request{Kind: kind}) {
			return "", fmt.Errorf("window %d: %w", id, compositor.ErrNoWindow)
		}
		return fmt.Sprintf("Sent %s to %d", verb, id), nil
	})
}

func (c *Console) toplevels() (string, error) {
	return c.call(func(s *compositor.State) (string, error) {
		published := s.Toplevels().Published()
		infos := []ipc.ToplevelInfo{}
		for _, id := range s.Toplevels().Order() {
			snap := published[id]
			info := ipc.ToplevelInfo{
				ID:     uint64(id),
				Title:  snap.Title,
				AppID:  snap.AppID,
				Output: snap.Output,
			}
			for _, st := range snap.States {
				info.States = append(info.States, st.String())
			}
			infos = append(infos, info)
		}
		return toJSON(infos)
	})
}

// watch copies every event to out until the event fan-out shuts down
func (c *Console) watch(out io.Writer) (string, error) {
	if c.watching != "" {
		return "Already watching", nil
	}
	name := fmt.Sprintf("console-%d", time.Now().UnixNano())
	events, err := c.state.Events().MakeReceiver(name)
	if err != nil {
		return "", err
	}
	c.watching = name
	go func() {
		enc := json.NewEncoder(out)
		for ev := range events {
			if err := enc.Encode(ev); err != nil {
				logrus.WithError(err).Debugln("Stopped watching events")
				c.state.Events().CloseReceiver(name)
				return
			}
		}
	}()
	return "Watching events", nil
}
