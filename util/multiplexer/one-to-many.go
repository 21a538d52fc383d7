// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package multiplexer

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrReceiverExists = errors.New("receiver with that name already exists")

// How many messages a slow receiver may lag behind before messages get dropped for it
const receiverBuffer = 32

type OneToMany[T any] struct {
	inbound   chan T
	outbound  map[string]chan T // Use map here to give names to outbound channels
	lock      sync.Mutex
	closeChan chan any
	closed    bool
}

func NewOneToMany[T any]() *OneToMany[T] {
	return &OneToMany[T]{
		inbound:   make(chan T, receiverBuffer),
		outbound:  make(map[string]chan T),
		closeChan: make(chan any),
	}
}

// Get the channel to send things into
func (o *OneToMany[T]) GetSender() chan<- T {
	return o.inbound
}

// TrySend queues msg without blocking. Returns false if the queue is full
func (o *OneToMany[T]) TrySend(msg T) bool {
	select {
	case o.inbound <- msg:
		return true
	default:
		return false
	}
}

// Create a new receiver for the multiplexer to send messages to.
// Please do not close this manually, instead use the CloseReceiver func
func (o *OneToMany[T]) MakeReceiver(name string) (<-chan T, error) {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.closed {
		return nil, ErrClosed
	}
	// Only allow new receivers to be made
	if _, ok := o.outbound[name]; ok {
		return nil, ErrReceiverExists
	}
	rec := make(chan T, receiverBuffer)
	o.outbound[name] = rec
	return rec, nil
}

// Closes a receiver channel with the given name and removes it from the multiplexer
func (o *OneToMany[T]) CloseReceiver(name string) {
	o.lock.Lock()
	defer o.lock.Unlock()
	if val, ok := o.outbound[name]; ok {
		close(val)
		delete(o.outbound, name)
	}
}

// Start this one to many multiplexer
// intended to run as a goroutine (`go plexer.StartPlexer()`)
// Receivers that fall behind miss messages instead of blocking everyone else
func (o *OneToMany[T]) StartPlexer() {
	for {
		select {
		// Message gotten from inbound channel
		case msg := <-o.inbound:
			o.lock.Lock()
			// Send it to all outbound channels
			for name, c := range o.outbound {
				select {
				case c <- msg:
				default:
					logrus.WithField("receiver", name).Warningln("Receiver is lagging behind, dropped message")
				}
			}
			o.lock.Unlock()
		// Told to close the plexer including sender
		case <-o.closeChan:
			o.lock.Lock()
			// First close all outbound channels
			// No need to send any signal there as readers will just stop
			for name, c := range o.outbound {
				close(c)
				delete(o.outbound, name)
			}
			// Inbound stays open, late TrySend calls just fill the buffer
			o.closed = true
			o.lock.Unlock()
			return
		}
	}
}

// Close all receiver channels, mark the plexer as closed and stop the distribution goroutine (all by sending one signal)
// Needs StartPlexer to be running
func (o *OneToMany[T]) CloseSender() {
	o.closeChan <- 1
}
