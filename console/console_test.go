package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mstarongithub/consolation/common/ipc"
	"github.com/mstarongithub/consolation/compositor"
	"github.com/mstarongithub/consolation/geom"
	"github.com/mstarongithub/consolation/output"
	"github.com/mstarongithub/consolation/render/soft"
	"github.com/mstarongithub/consolation/repl"
	"github.com/mstarongithub/consolation/util/wrappers"
)

type fakeSpawner struct {
	spawned [][]string
}

func (s *fakeSpawner) Spawn(argv []string, _ []string) error {
	s.spawned = append(s.spawned, argv)
	return nil
}

type lockedBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}

type fixture struct {
	console *Console
	spawner *fakeSpawner
	out     *lockedBuffer
	repl    repl.Repl
	stopped chan error
}

// newFixture runs a headless compositor loop for the duration of the test
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		spawner: &fakeSpawner{},
		out:     &lockedBuffer{},
		stopped: make(chan error, 1),
	}
	state := compositor.New(compositor.Options{
		Renderer: soft.New(geom.Size{W: 800, H: 600}),
		Spawner:  f.spawner,
	})
	t.Cleanup(state.Shutdown)
	err := state.AddOutput(&output.Output{
		Name:    "eDP-1",
		Modes:   []output.Mode{{Width: 800, Height: 600, Refresh: 60000, Preferred: true}},
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("AddOutput failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		f.stopped <- state.Run(ctx, nil)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-f.stopped:
		case <-time.After(5 * time.Second):
			t.Errorf("Compositor loop did not stop")
		}
	})
	f.console = New(state)
	f.repl = repl.NewRepl(
		wrappers.NewReaderWrapper(strings.NewReader("")),
		wrappers.NewWriterWrapper(f.out),
	)
	return f
}

func (f *fixture) handle(t *testing.T, line string) string {
	t.Helper()
	res, err := f.console.Handle(line, &f.repl)
	if err != nil {
		t.Fatalf("Handle(%q) failed: %v", line, err)
	}
	return res
}

func (f *fixture) outputs(t *testing.T) []ipc.OutputInfo {
	t.Helper()
	var infos []ipc.OutputInfo
	if err := json.Unmarshal([]byte(f.handle(t, "inspect outputs")), &infos); err != nil {
		t.Fatalf("Failed to decode outputs: %v", err)
	}
	return infos
}

func TestInspectOutputs(t *testing.T) {
	f := newFixture(t)
	infos := f.outputs(t)
	if len(infos) != 1 || infos[0].Name != "eDP-1" {
		t.Fatalf("Expected eDP-1, got %+v", infos)
	}
	if infos[0].Mode == nil || infos[0].Mode.Width != 800 || infos[0].Mode.Height != 600 {
		t.Errorf("Expected the 800x600 mode, got %+v", infos[0].Mode)
	}
}

func TestInspectEmptyStack(t *testing.T) {
	f := newFixture(t)
	var stack ipc.StackResponse
	if err := json.Unmarshal([]byte(f.handle(t, "inspect stack")), &stack); err != nil {
		t.Fatalf("Failed to decode stack: %v", err)
	}
	if len(stack.Windows) != 0 {
		t.Errorf("Expected no windows, got %+v", stack.Windows)
	}
}

func TestOutputScale(t *testing.T) {
	f := newFixture(t)
	if res := f.handle(t, "output eDP-1 scale 2"); res != "Applied" {
		t.Fatalf("Expected the scale to apply, got %q", res)
	}
	infos := f.outputs(t)
	if infos[0].Scale != 2 || !infos[0].Enabled {
		t.Errorf("Expected an enabled output at scale 2, got %+v", infos[0])
	}
}

func TestOutputTransform(t *testing.T) {
	f := newFixture(t)
	if res := f.handle(t, "output eDP-1 transform 90"); res != "Applied" {
		t.Fatalf("Expected the transform to apply, got %q", res)
	}
	if infos := f.outputs(t); infos[0].Transform != geom.Transform90.String() {
		t.Errorf("Expected transform 90, got %q", infos[0].Transform)
	}
}

func TestOutputErrors(t *testing.T) {
	f := newFixture(t)
	for _, line := range []string{
		"output HDMI-A-9 scale 2",
		"output eDP-1 scale -1",
		"output eDP-1 scale big",
		"output eDP-1 mode huge",
		"output eDP-1 mode 3",
		"output eDP-1 transform sideways",
		"output eDP-1",
		// The last enabled output can't go away
		"output eDP-1 disable",
	} {
		if res := f.handle(t, line); !strings.HasPrefix(res, "Error:") {
			t.Errorf("Expected %q to fail, got %q", line, res)
		}
	}
}

func TestOutputModeByIndex(t *testing.T) {
	f := newFixture(t)
	if res := f.handle(t, "output eDP-1 mode 0"); res != "Applied" {
		t.Errorf("Expected mode 0 to apply, got %q", res)
	}
	if res := f.handle(t, "output eDP-1 mode 800x600@60"); res != "Applied" {
		t.Errorf("Expected the named mode to apply, got %q", res)
	}
}

func TestNoToplevelsPublished(t *testing.T) {
	f := newFixture(t)
	if res := f.handle(t, "toplevels"); res != "[]" {
		t.Errorf("Expected an empty list, got %q", res)
	}
}

func TestMenuOpenClose(t *testing.T) {
	f := newFixture(t)
	for _, tc := range []struct {
		line string
		open bool
	}{
		{"menu open", true},
		{"menu open", true},
		{"menu close", false},
		{"menu close", false},
	} {
		var menu ipc.MenuResponse
		if err := json.Unmarshal([]byte(f.handle(t, tc.line)), &menu); err != nil {
			t.Fatalf("Failed to decode menu: %v", err)
		}
		if menu.Open != tc.open {
			t.Errorf("%q: expected open=%v, got %v", tc.line, tc.open, menu.Open)
		}
	}
}

func TestMenuToggle(t *testing.T) {
	f := newFixture(t)
	var menu ipc.MenuResponse
	if err := json.Unmarshal([]byte(f.handle(t, "menu toggle")), &menu); err != nil {
		t.Fatalf("Failed to decode menu: %v", err)
	}
	if !menu.Open {
		t.Errorf("Expected the menu to be open")
	}
	if res := f.handle(t, "menu sideways"); !strings.HasPrefix(res, "Error:") {
		t.Errorf("Expected an unknown menu action to fail, got %q", res)
	}
}

func TestRunUsesSpawner(t *testing.T) {
	f := newFixture(t)
	if res := f.handle(t, "run foot -e htop"); res != "Running foot" {
		t.Fatalf("Unexpected answer %q", res)
	}
	if len(f.spawner.spawned) != 1 || strings.Join(f.spawner.spawned[0], " ") != "foot -e htop" {
		t.Errorf("Expected foot -e htop to be spawned, got %v", f.spawner.spawned)
	}
	if res := f.handle(t, "run"); !strings.HasPrefix(res, "Error:") {
		t.Errorf("Expected an empty run to fail, got %q", res)
	}
}

func TestWindowCommandsNeedAWindow(t *testing.T) {
	f := newFixture(t)
	for _, line := range []string{"focus 42", "close 42", "focus nope", "toplevel 42 minimize", "toplevel 1 explode"} {
		if res := f.handle(t, line); !strings.HasPrefix(res, "Error:") {
			t.Errorf("Expected %q to fail, got %q", line, res)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)
	if res := f.handle(t, "dance"); !strings.HasPrefix(res, "Unknown command") {
		t.Errorf("Expected the command to be rejected, got %q", res)
	}
	if res := f.handle(t, "   "); res != "" {
		t.Errorf("Expected empty input to be ignored, got %q", res)
	}
}

func TestWatchStreamsEvents(t *testing.T) {
	f := newFixture(t)
	if res := f.handle(t, "watch"); res != "Watching events" {
		t.Fatalf("Unexpected answer %q", res)
	}
	if res := f.handle(t, "watch"); res != "Already watching" {
		t.Errorf("Expected a second watch to be refused, got %q", res)
	}
	f.handle(t, "output eDP-1 scale 2")
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(f.out.String(), `"Kind":"outputs"`) {
		if time.Now().After(deadline) {
			t.Fatalf("Expected an outputs event, got %q", f.out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestQuitStopsTheLoop(t *testing.T) {
	f := newFixture(t)
	res, err := f.console.Handle("quit", &f.repl)
	if !errors.Is(err, ErrQuit) || res != "Quitting" {
		t.Fatalf("Expected quit to end the repl, got %q and %v", res, err)
	}
	select {
	case err := <-f.stopped:
		if err != nil {
			t.Errorf("Expected a clean stop, got %v", err)
		}
		// Cleanup waits on the same channel
		f.stopped <- nil
	case <-time.After(5 * time.Second):
		t.Fatalf("Expected the loop to stop")
	}
}
