package main

import (
	"errors"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/consolation/compositor"
	"github.com/mstarongithub/consolation/config"
	"github.com/mstarongithub/consolation/console"
	"github.com/mstarongithub/consolation/repl"
	"github.com/mstarongithub/consolation/spawn"
	"github.com/mstarongithub/consolation/util/wrappers"
)

// startTargets does whatever the config asks for once the compositor is up
func startTargets(conf *config.Config, state *compositor.State, spawner spawn.Spawner) {
	switch conf.StartType {
	case config.START_REPL:
		go replRunner(state)
	case config.START_SINGLE_COMMAND:
		if conf.StartCommand == nil {
			logrus.Warningln("Start type is single command, but no command is set")
			return
		}
		if err := spawner.Spawn(strings.Fields(*conf.StartCommand), nil); err != nil {
			logrus.WithError(err).WithField("command", *conf.StartCommand).Errorln("Start command failed")
		}
	case config.START_NONE:
	}
}

func replRunner(state *compositor.State) {
	// Give repl some wrappers around stdin and stdout so that it closes those instead of stdin & stdout themselves
	commandRepl := repl.NewRepl(wrappers.NewReaderWrapper(os.Stdin), wrappers.NewWriterWrapper(os.Stdout))
	logrus.Debugln("Starting repl")
	err := commandRepl.Run(console.New(state).Handle)
	if err != nil && !errors.Is(err, console.ErrQuit) {
		logrus.WithError(err).Errorln("Repl stopped")
	}
}
