// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/consolation/config"
)

var (
	configPath *string = flag.String("config", "", "Path to the config file. Searched for in the XDG config dirs if empty")
	toolMode   *bool   = flag.Bool("tool", false, "Start as a tool instead of a compositor")
	help       *bool   = flag.Bool("help", false, "Show the help message")
	headless   *bool   = flag.Bool("headless", false, "Draw into memory instead of starting wlroots")

	headlessSize *string = flag.String("size", "1280x720", "Size of the headless output")
	snapshotPath *string = flag.String("snapshot", "", "Save the last headless frame as png on exit, or the frame of -action snapshot")
	x11Display   *string = flag.String("x11-display", "", "Manage the windows of this X display in headless mode")
)

func main() {
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		fatal("loading config", err)
	}
	logrus.SetLevel(conf.Level())

	switch {
	case *toolMode:
		utilMain(conf)
	case *help:
		helpMessage()
	case *headless:
		headlessMain(conf)
	default:
		wlMain(conf)
	}
}

func helpMessage() {
	fmt.Println("---- Help message for consolation ----")
	fmt.Println("\nconsolation shows one window at a time. Logo+M opens the window menu, Logo+Return a terminal")
	fmt.Println("\nFlags:")
	flag.PrintDefaults()
	fmt.Println("\nUse -tool -help for the tool mode")
}
