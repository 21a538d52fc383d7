package toplevel

import (
	"fmt"
	"testing"

	"golang.org/x/exp/slices"

	"github.com/mstarongithub/consolation/output"
	"github.com/mstarongithub/consolation/window"
)

type recHandle struct {
	id     window.ID
	events *[]string
}

func (h *recHandle) log(format string, args ...any) {
	*h.events = append(*h.events, fmt.Sprintf("%d ", h.id)+fmt.Sprintf(format, args...))
}

func (h *recHandle) Title(title string)   { h.log("title %s", title) }
func (h *recHandle) AppID(appID string)   { h.log("app_id %s", appID) }
func (h *recHandle) State(states []State) { h.log("state %v", states) }
func (h *recHandle) OutputEnter(o string) { h.log("enter %s", o) }
func (h *recHandle) OutputLeave(o string) { h.log("leave %s", o) }
func (h *recHandle) Done()                { h.log("done") }
func (h *recHandle) Closed()              { h.log("closed") }

type recClient struct {
	events   []string
	finished bool
}

func (c *recClient) Toplevel(id window.ID) Handle {
	c.events = append(c.events, fmt.Sprintf("%d toplevel", id))
	return &recHandle{id: id, events: &c.events}
}

func (c *recClient) Finished() { c.finished = true }

func setup(t *testing.T) (*Manager, *window.Stack, *output.Registry) {
	t.Helper()
	reg := output.NewRegistry()
	if err := reg.Add(&output.Output{
		Name:    "HDMI-A-1",
		Modes:   []output.Mode{{Width: 1920, Height: 1080, Refresh: 60000}},
		Enabled: true,
	}); err != nil {
		t.Fatalf("adding output: %v", err)
	}
	return NewManager(), window.NewStack(), reg
}

func TestBindSendsExistingToplevels(t *testing.T) {
	m, stack, reg := setup(t)
	stack.Insert(&window.Window{Title: "editor", AppID: "ed", Mapped: true})
	m.Refresh(stack, reg)

	c := &recClient{}
	m.Bind(c)
	id := stack.Top().ID
	want := []string{
		fmt.Sprintf("%d toplevel", id),
		fmt.Sprintf("%d title editor", id),
		fmt.Sprintf("%d app_id ed", id),
		fmt.Sprintf("%d state [activated]", id),
		fmt.Sprintf("%d enter HDMI-A-1", id),
		fmt.Sprintf("%d done", id),
	}
	if !slices.Equal(c.events, want) {
		t.Errorf("expected %v, got %v", want, c.events)
	}
}

func TestRefreshSendsOnlyDeltas(t *testing.T) {
	m, stack, reg := setup(t)
	w := &window.Window{Title: "one", AppID: "app", Mapped: true}
	stack.Insert(w)
	c := &recClient{}
	m.Bind(c)
	m.Refresh(stack, reg)
	c.events = nil

	m.Refresh(stack, reg)
	if len(c.events) != 0 {
		t.Fatalf("unchanged stack produced events: %v", c.events)
	}

	w.Title = "two"
	m.Refresh(stack, reg)
	want := []string{fmt.Sprintf("%d title two", w.ID), fmt.Sprintf("%d done", w.ID)}
	if !slices.Equal(c.events, want) {
		t.Errorf("expected %v, got %v", want, c.events)
	}
}

func TestOnlyTopIsActivated(t *testing.T) {
	m, stack, reg := setup(t)
	a := &window.Window{Title: "a", Mapped: true}
	b := &window.Window{Title: "b", Mapped: true}
	stack.Insert(a)
	stack.Insert(b)
	m.Refresh(stack, reg)

	pub := m.Published()
	if !slices.Contains(pub[b.ID].States, StateActivated) {
		t.Errorf("top window is not activated")
	}
	if slices.Contains(pub[a.ID].States, StateActivated) {
		t.Errorf("lower window is activated")
	}

	stack.Raise(a.ID)
	m.Refresh(stack, reg)
	pub = m.Published()
	if !slices.Contains(pub[a.ID].States, StateActivated) || slices.Contains(pub[b.ID].States, StateActivated) {
		t.Errorf("activation did not follow the raise: %v", pub)
	}
}

func TestClosedWindowsAreAnnounced(t *testing.T) {
	m, stack, reg := setup(t)
	w := &window.Window{Title: "gone", Mapped: true}
	stack.Insert(w)
	c := &recClient{}
	m.Bind(c)
	m.Refresh(stack, reg)
	c.events = nil

	stack.Remove(w.ID)
	m.Refresh(stack, reg)
	want := []string{fmt.Sprintf("%d closed", w.ID)}
	if !slices.Equal(c.events, want) {
		t.Errorf("expected %v, got %v", want, c.events)
	}
	if len(m.Order()) != 0 {
		t.Errorf("closed window still published")
	}
}

func TestPopupsAreNotPublished(t *testing.T) {
	m, stack, reg := setup(t)
	stack.Insert(&window.Window{Title: "menu", Mapped: true, IsPopup: true})
	stack.Insert(&window.Window{Title: "hidden"})
	m.Refresh(stack, reg)
	if len(m.Order()) != 0 {
		t.Errorf("expected nothing published, got %v", m.Published())
	}
}

type recRequests struct{ calls []string }

func (r *recRequests) Activate(id window.ID)           { r.calls = append(r.calls, "activate") }
func (r *recRequests) Close(id window.ID)              { r.calls = append(r.calls, "close") }
func (r *recRequests) SetFullscreen(window.ID, string) { r.calls = append(r.calls, "fullscreen") }
func (r *recRequests) UnsetFullscreen(window.ID)       { r.calls = append(r.calls, "unfullscreen") }
func (r *recRequests) SetMaximized(window.ID)          { r.calls = append(r.calls, "maximize") }
func (r *recRequests) UnsetMaximized(window.ID)        { r.calls = append(r.calls, "unmaximize") }
func (r *recRequests) SetMinimized(window.ID)          { r.calls = append(r.calls, "minimize") }
func (r *recRequests) UnsetMinimized(window.ID)        { r.calls = append(r.calls, "unminimize") }

func TestRequestsReachHandler(t *testing.T) {
	m, stack, reg := setup(t)
	w := &window.Window{Mapped: true}
	stack.Insert(w)
	m.Refresh(stack, reg)

	h := &recRequests{}
	if !m.Handle(h, w.ID, Request{Kind: RequestSetMaximized}) {
		t.Fatalf("request for a published toplevel was dropped")
	}
	if m.Handle(h, w.ID+100, Request{Kind: RequestClose}) {
		t.Errorf("request for an unknown toplevel was accepted")
	}
	if !slices.Equal(h.calls, []string{"maximize"}) {
		t.Errorf("unexpected handler calls %v", h.calls)
	}
}

func TestStopFinishesClient(t *testing.T) {
	m, stack, reg := setup(t)
	c := &recClient{}
	m.Bind(c)
	m.Stop(c)
	if !c.finished {
		t.Errorf("client was not finished")
	}
	stack.Insert(&window.Window{Mapped: true})
	m.Refresh(stack, reg)
	if len(c.events) != 0 {
		t.Errorf("stopped client still got events: %v", c.events)
	}
}
