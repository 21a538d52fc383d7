package window

import (
	"container/list"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/consolation/surface"
)

var ErrIndexOutOfRange = errors.New("stack index out of range")

// Stack orders the windows. Index 0 is the front, the window considered active
type Stack struct {
	windows list.List
	nextID  ID
}

func NewStack() *Stack {
	s := &Stack{}
	s.windows.Init()
	return s
}

// NewID hands out a fresh window id
func (s *Stack) NewID() ID {
	s.nextID++
	return s.nextID
}

func (s *Stack) element(id ID) *list.Element {
	for e := s.windows.Front(); e != nil; e = e.Next() {
		if e.Value.(*Window).ID == id {
			return e
		}
	}
	return nil
}

func (s *Stack) Len() int {
	return s.windows.Len()
}

// Insert puts w on top. Inserting a window that is already stacked raises it instead
func (s *Stack) Insert(w *Window) {
	if w.ID == 0 {
		w.ID = s.NewID()
	}
	if e := s.element(w.ID); e != nil {
		s.windows.MoveToFront(e)
		return
	}
	s.windows.PushFront(w)
	logrus.WithFields(logrus.Fields{
		"window": w.ID,
		"kind":   w.Kind,
		"stack":  s.windows.Len(),
	}).Debugln("Window inserted")
}

// InsertAt places w at the given index, clamped to the end of the stack
func (s *Stack) InsertAt(w *Window, index int) {
	if w.ID == 0 {
		w.ID = s.NewID()
	}
	if e := s.element(w.ID); e != nil {
		s.windows.Remove(e)
	}
	if index <= 0 || s.windows.Len() == 0 {
		s.windows.PushFront(w)
		return
	}
	e := s.windows.Front()
	for i := 1; i < index && e.Next() != nil; i++ {
		e = e.Next()
	}
	s.windows.InsertAfter(w, e)
}

// Raise moves the window to index 0 without touching the order of the others
func (s *Stack) Raise(id ID) bool {
	e := s.element(id)
	if e == nil {
		return false
	}
	s.windows.MoveToFront(e)
	return true
}

// Remove takes the window out of the stack. wasTop reports whether it was at index 0,
// the next window is then the new front
func (s *Stack) Remove(id ID) (w *Window, wasTop bool) {
	e := s.element(id)
	if e == nil {
		return nil, false
	}
	wasTop = e == s.windows.Front()
	s.windows.Remove(e)
	logrus.WithFields(logrus.Fields{
		"window": id,
		"stack":  s.windows.Len(),
	}).Debugln("Window removed")
	return e.Value.(*Window), wasTop
}

// BringNthToTop raises the window currently at index n
func (s *Stack) BringNthToTop(n int) error {
	e := s.at(n)
	if e == nil {
		return ErrIndexOutOfRange
	}
	s.windows.MoveToFront(e)
	return nil
}

func (s *Stack) at(n int) *list.Element {
	if n < 0 || n >= s.windows.Len() {
		return nil
	}
	e := s.windows.Front()
	for i := 0; i < n; i++ {
		e = e.Next()
	}
	return e
}

func (s *Stack) At(n int) (*Window, bool) {
	e := s.at(n)
	if e == nil {
		return nil, false
	}
	return e.Value.(*Window), true
}

// Top returns the front window, nil on an empty stack
func (s *Stack) Top() *Window {
	if e := s.windows.Front(); e != nil {
		return e.Value.(*Window)
	}
	return nil
}

// Index returns the stacking position, -1 when the window isn't stacked
func (s *Stack) Index(id ID) int {
	i := 0
	for e := s.windows.Front(); e != nil; e = e.Next() {
		if e.Value.(*Window).ID == id {
			return i
		}
		i++
	}
	return -1
}

func (s *Stack) Find(id ID) (*Window, bool) {
	if e := s.element(id); e != nil {
		return e.Value.(*Window), true
	}
	return nil, false
}

// FindBySurface looks up the window owning the root surface or one of its popups
func (s *Stack) FindBySurface(id surface.ID) (*Window, bool) {
	for e := s.windows.Front(); e != nil; e = e.Next() {
		w := e.Value.(*Window)
		if w.Surface == id {
			return w, true
		}
		for _, p := range w.Popups {
			if p.Surface == id {
				return w, true
			}
		}
	}
	return nil, false
}

func (s *Stack) FindX11(xid uint32) (*Window, bool) {
	if xid == 0 {
		return nil, false
	}
	for e := s.windows.Front(); e != nil; e = e.Next() {
		if w := e.Value.(*Window); w.X11 == xid {
			return w, true
		}
	}
	return nil, false
}

// TopToBottom returns a snapshot of the stack starting at index 0
func (s *Stack) TopToBottom() []*Window {
	out := make([]*Window, 0, s.windows.Len())
	for e := s.windows.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*Window))
	}
	return out
}

// BottomToTop returns a snapshot of the stack starting at the back
func (s *Stack) BottomToTop() []*Window {
	out := make([]*Window, 0, s.windows.Len())
	for e := s.windows.Back(); e != nil; e = e.Prev() {
		out = append(out, e.Value.(*Window))
	}
	return out
}
