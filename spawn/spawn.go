// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package spawn starts client processes with the compositor's display environment.
package spawn

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrNoCommand = errors.New("no command given")

type Spawner interface {
	// Spawn starts argv with env added to the compositor environment and returns
	// once the process is started
	Spawn(argv []string, env []string) error
}

// Exec runs commands as child processes and reaps them in the background
type Exec struct {
	// Applied to every child on top of the inherited environment
	WaylandDisplay string
	// X display number, negative without XWayland
	XDisplay int
	// Where child output goes, nil discards it
	Output io.Writer
	// Called from the reaper goroutine once a child exited
	OnExit func(argv []string, err error)

	wg sync.WaitGroup
}

func NewExec(waylandDisplay string, xDisplay int) *Exec {
	return &Exec{WaylandDisplay: waylandDisplay, XDisplay: xDisplay}
}

// Environ builds the child environment
func (e *Exec) Environ(extra []string) []string {
	env := os.Environ()
	if e.WaylandDisplay != "" {
		env = append(env, "WAYLAND_DISPLAY="+e.WaylandDisplay)
	}
	if e.XDisplay >= 0 {
		env = append(env, fmt.Sprintf("DISPLAY=:%d", e.XDisplay))
	}
	return append(env, extra...)
}

func (e *Exec) Spawn(argv []string, env []string) error {
	if len(argv) == 0 || argv[0] == "" {
		return ErrNoCommand
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = e.Environ(env)
	if e.Output != nil {
		cmd.Stdout = e.Output
		cmd.Stderr = e.Output
	}
	if err := cmd.Start(); err != nil {
		logrus.WithError(err).WithField("command", strings.Join(argv, " ")).Errorln("Command failed to start")
		return fmt.Errorf("starting %s: %w", argv[0], err)
	}
	logrus.WithFields(logrus.Fields{
		"command": strings.Join(argv, " "),
		"pid":     cmd.Process.Pid,
	}).Infoln("Spawned client")

	e.wg.Add(1)
	go func(cmd *exec.Cmd, argv []string) {
		defer e.wg.Done()
		err := cmd.Wait()
		if exiterr, ok := err.(*exec.ExitError); ok {
			logrus.WithError(err).WithFields(logrus.Fields{
				"exit-code": exiterr.ExitCode(),
				"command":   strings.Join(argv, " "),
			}).Warningln("Bad command completion")
		}
		if e.OnExit != nil {
			e.OnExit(argv, err)
		}
	}(cmd, argv)
	return nil
}

// Wait blocks until every spawned child was reaped
func (e *Exec) Wait() {
	e.wg.Wait()
}
