package ipc

// TODO: Look into adding support for sway and hyprland ipc so that consolation can interact with those in tool mode

type (
	// A request to list the available Outputs
	OutputRequest struct {
		// Whether to include the modes an output supports
		IncludeModes bool `json:"include_modes"`
		// Target one specific output
		SpecifiesOutput bool `json:"specifies_output"`
		// Name of the output you want info on. Only matters if SpecifiesOutput is set
		TargetOutput string `json:"target_output"`
	}

	// A mode an output supports
	OutputMode struct {
		// Mode height in pixel
		Height int
		// Mode width in pixel
		Width int
		// Refresh rate of the mode in millihertz
		RefreshRate int
		Preferred   bool `json:",omitempty"`
	}

	// Response to a OutputRequest message
	OutputResponse struct {
		// List of all outputs. Only contains target output if specified
		Outputs []string
		// A list of modes an output supports. Only set if IncludeModes is true
		OutputModes map[string][]OutputMode `json:",omitempty"`
		// Nr of outputs found
		OutputsFound int
	}

	// Current state of one output
	OutputInfo struct {
		Name        string
		Description string
		Enabled     bool
		Mode        *OutputMode `json:",omitempty"`
		Scale       float64
		Transform   string
		X, Y        int
	}

	// One entry of the window stack
	WindowInfo struct {
		ID     uint64
		Kind   string
		Title  string
		AppID  string `json:",omitempty"`
		X, Y   int
		Width  int
		Height int
		Mapped bool
		Popup  bool     `json:",omitempty"`
		States []string `json:",omitempty"`
	}

	// What the foreign toplevel bridge published about a window
	ToplevelInfo struct {
		ID     uint64
		Title  string
		AppID  string   `json:",omitempty"`
		States []string `json:",omitempty"`
		// Output the toplevel is shown on
		Output string `json:",omitempty"`
	}

	// Window stack, topmost first
	StackResponse struct {
		Windows []WindowInfo
	}

	FocusResponse struct {
		// Zero if nothing has keyboard focus
		KeyboardWindow uint64
		PointerWindow  uint64
		PointerX       float64
		PointerY       float64
	}

	MenuResponse struct {
		Open     bool
		Selected int
		Rows     int
	}

	// Pushed to watchers whenever something about the windows changes
	Event struct {
		// mapped, unmapped, focus, outputs
		Kind   string
		Window uint64 `json:",omitempty"`
		Title  string `json:",omitempty"`
	}
)
