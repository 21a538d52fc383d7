package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/consolation/compositor"
	"github.com/mstarongithub/consolation/config"
	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/output"
	"github.com/mstarongithub/consolation/render/soft"
	"github.com/mstarongithub/consolation/spawn"
	"github.com/mstarongithub/consolation/xwayland"
)

const headlessOutput = "HEADLESS-1"

// parseSize reads sizes like "1280x720"
func parseSize(s string) (geom.Size, error) {
	var size geom.Size
	if n, _ := fmt.Sscanf(s, "%dx%d", &size.W, &size.H); n != 2 || size.Empty() {
		return geom.Size{}, fmt.Errorf("size %q has to look like 1280x720", s)
	}
	return size, nil
}

// newHeadless builds a compositor drawing into memory with one virtual output
func newHeadless(conf *config.Config, size geom.Size, spawner spawn.Spawner) (*compositor.State, *soft.Renderer, error) {
	renderer := soft.New(size)
	state := compositor.New(compositor.Options{
		Config:   conf,
		Renderer: renderer,
		Spawner:  spawner,
	})
	err := state.AddOutput(&output.Output{
		Name:        headlessOutput,
		Make:        "consolation",
		Model:       "headless",
		Modes:       []output.Mode{{Width: size.W, Height: size.H, Refresh: 60000, Preferred: true}},
		CurrentMode: 0,
		Scale:       1,
		Enabled:     true,
	})
	if err != nil {
		state.Shutdown()
		return nil, nil, err
	}
	return state, renderer, nil
}

// attachX11 makes the compositor the window manager of an already running X server
func attachX11(ctx context.Context, state *compositor.State, display string) error {
	conn, err := xwayland.Dial(display)
	if err != nil {
		return err
	}
	if err := state.StartXWayland(conn); err != nil {
		conn.Close()
		return err
	}
	go func() {
		err := conn.Run(ctx, func(ev xwayland.Event) {
			if err := state.Post(func(s *compositor.State) { s.HandleX11(ev) }); err != nil {
				logrus.WithError(err).Debugln("Dropping X11 event, loop is gone")
			}
		})
		if err != nil && ctx.Err() == nil {
			logrus.WithError(err).Errorln("X11 connection lost")
		}
	}()
	return nil
}

func headlessMain(conf *config.Config) {
	size, err := parseSize(*headlessSize)
	if err != nil {
		fatal("parsing size", err)
	}
	spawner := spawn.NewExec("", -1)
	state, renderer, err := newHeadless(conf, size, spawner)
	if err != nil {
		fatal("initializing headless compositor", err)
	}
	defer state.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if conf.XWayland && *x11Display != "" {
		if err := attachX11(ctx, state, *x11Display); err != nil {
			logrus.WithError(err).WithField("display", *x11Display).Errorln("Can't manage X11 display")
		}
	}

	startTargets(conf, state, spawner)

	logrus.WithField("size", size).Infoln("Running headless compositor")
	if err := state.Run(ctx, nil); err != nil {
		fatal("running compositor", err)
	}
	if *snapshotPath != "" {
		if err := renderer.SavePNG(*snapshotPath); err != nil {
			logrus.WithError(err).Errorln("Failed to save the last frame")
		}
	}
}
