package main

import (
	"flag"
	"fmt"

	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
	"gitlab.com/mstarongitlab/goutils/sliceutils"

	"github.com/mstarongithub/consolation/common/ipc"
	"github.com/mstarongithub/consolation/config"
	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/input"
	"github.com/mstarongithub/consolation/output"
)

var (
	utilAction *string = flag.String(
		"action",
		"outputs",
		"The action to perform. Can be one of:"+
			"\n\t- none: Do nothing"+
			"\n\t- outputs: List available outputs"+
			"\n\t- modes <output>: List available modes for an output"+
			"\n\t- snapshot: Render one headless frame to -snapshot"+
			"\n\t- config: Print the effective configuration",
	)
	outputSelection *string = flag.String(
		"output",
		"",
		"Output to perform the action on. Required for some actions",
	)
)

func utilMain(conf *config.Config) {
	if *help {
		utilHelpMessage()
		return
	}

	switch *utilAction {
	case "none":
	case "outputs":
		resp, err := queryOutputs(conf, ipc.OutputRequest{})
		if err != nil {
			fatal("listing outputs", err)
		}
		utilListOutputs(resp)
	case "modes":
		if *outputSelection == "" {
			fmt.Println("Output has to be specified")
			return
		}
		resp, err := queryOutputs(conf, ipc.OutputRequest{
			IncludeModes:    true,
			SpecifiesOutput: true,
			TargetOutput:    *outputSelection,
		})
		if err != nil {
			fatal("listing modes", err)
		}
		utilListOutputModes(resp, *outputSelection)
	case "snapshot":
		path := *snapshotPath
		if path == "" {
			path = "consolation.png"
		}
		if err := utilSnapshot(conf, path); err != nil {
			fatal("rendering snapshot", err)
		}
		fmt.Printf("Saved frame to %s\n", path)
	case "config":
		data, err := toml.Marshal(*conf)
		if err != nil {
			fatal("encoding config", err)
		}
		fmt.Print(string(data))
	default:
		fmt.Printf("Unknown action %q\n", *utilAction)
		utilHelpMessage()
	}
}

func utilHelpMessage() {
	fmt.Println("---- Help message for consolation in tool mode ----")
	fmt.Println("\nIn tool mode, consolation will offer various tools for figuring out configurations and similar")
	fmt.Println("\nGeneral flags:")
	fmt.Println("\t-config: Path to the config file. Searched for in the XDG config dirs if empty")
	fmt.Println("\t-tool: Start as a tool instead of a compositor")
	fmt.Println("\t-headless: Ask the headless output instead of the wlroots backend")
	fmt.Println("\t-help: Show this help message (or the one for compositor mode if -tool is not set)")
	fmt.Println("\nTool flags:")
	fmt.Println("\t-action: The action to perform. Can be one of:")
	fmt.Println("\t\t- (default) outputs: List available outputs")
	fmt.Println("\t\t- modes: List available modes for an output. Use with -output")
	fmt.Println("\t\t- snapshot: Render the window menu of an empty headless compositor. Use with -snapshot and -size")
	fmt.Println("\t\t- config: Print the configuration after applying the file and the environment")
	fmt.Println("\t-output: Output to perform the action on. Required for -action modes")
}

// queryOutputs answers req from the outputs of the wlroots backend, or the
// headless output with -headless
func queryOutputs(conf *config.Config, req ipc.OutputRequest) (ipc.OutputResponse, error) {
	var outputs []*output.Output
	if *headless {
		size, err := parseSize(*headlessSize)
		if err != nil {
			return ipc.OutputResponse{}, err
		}
		state, _, err := newHeadless(conf, size, nil)
		if err != nil {
			return ipc.OutputResponse{}, err
		}
		defer state.Shutdown()
		outputs = state.Outputs().All()
	} else {
		// Init a server, used for stuff like getting displays
		server, err := NewServer(conf)
		if err != nil {
			return ipc.OutputResponse{}, fmt.Errorf("initializing server: %w", err)
		}
		if err = server.Start(); err != nil {
			return ipc.OutputResponse{}, fmt.Errorf("starting server: %w", err)
		}
		defer server.Stop()
		outputs = server.State().Outputs().All()
	}
	return describeOutputs(outputs, req), nil
}

func describeOutputs(outputs []*output.Output, req ipc.OutputRequest) ipc.OutputResponse {
	if req.SpecifiesOutput {
		outputs = sliceutils.Filter(outputs, func(o *output.Output) bool {
			return o.Name == req.TargetOutput
		})
	}
	resp := ipc.OutputResponse{OutputsFound: len(outputs)}
	if req.IncludeModes {
		resp.OutputModes = map[string][]ipc.OutputMode{}
	}
	for _, o := range outputs {
		resp.Outputs = append(resp.Outputs, o.Name)
		if !req.IncludeModes {
			continue
		}
		for _, m := range o.Modes {
			resp.OutputModes[o.Name] = append(resp.OutputModes[o.Name], ipc.OutputMode{
				Width:       m.Width,
				Height:      m.Height,
				RefreshRate: m.Refresh,
				Preferred:   m.Preferred,
			})
		}
	}
	return resp
}

func utilListOutputs(resp ipc.OutputResponse) {
	for i, name := range resp.Outputs {
		fmt.Printf("Output %v: %s\n", i, name)
	}
}

func utilListOutputModes(resp ipc.OutputResponse, outputName string) {
	if resp.OutputsFound == 0 {
		fmt.Printf("Output %s not found\n", outputName)
		return
	}
	fmt.Printf("Modes for output %s:\n", outputName)
	for _, mode := range resp.OutputModes[outputName] {
		rate := float64(mode.RefreshRate) / 1000
		if mode.Preferred {
			fmt.Printf("\t- %dx%d@%.3f (preferred)\n", mode.Width, mode.Height, rate)
		} else {
			fmt.Printf("\t- %dx%d@%.3f\n", mode.Width, mode.Height, rate)
		}
	}
}

// utilSnapshot renders one frame of an empty headless compositor with the menu open
func utilSnapshot(conf *config.Config, path string) error {
	size, err := parseSize(*headlessSize)
	if err != nil {
		return err
	}
	state, renderer, err := newHeadless(conf, size, nil)
	if err != nil {
		return err
	}
	defer state.Shutdown()
	state.Perform(input.Action{Kind: input.ActionToggleMenu})
	if err := state.Iterate(); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"path": path,
		"size": geom.Size{W: renderer.Frame().Bounds().Dx(), H: renderer.Frame().Bounds().Dy()},
	}).Debugln("Saving snapshot")
	return renderer.SavePNG(path)
}
