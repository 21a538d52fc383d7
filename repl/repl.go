// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package repl reads commands line by line and writes back whatever the
// handler answers.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

type MessageHandler func(string, *Repl) (string, error)

// ReadCloser combines the Reader and Closer interfaces
type ReadCloser interface {
	io.Reader
	io.Closer
}

type Repl struct {
	Input  ReadCloser
	Output io.WriteCloser
	// Written before every line that is read, nothing if empty
	Prompt string

	scanner *bufio.Scanner
	// Shared with anything else writing to Output, like event watchers
	lock      *sync.Mutex
	writer    *bufio.Writer
	closeOnce *sync.Once
}

// Creates a new repl
// If no input is given, stdin will be used
// If no output is given, stdout will be used
// Note: The given reader and writer will be closed if the repl is started and then stops
func NewRepl(in ReadCloser, out io.WriteCloser) Repl {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return Repl{
		Input:     in,
		Output:    out,
		scanner:   bufio.NewScanner(in),
		lock:      &sync.Mutex{},
		writer:    bufio.NewWriter(out),
		closeOnce: &sync.Once{},
	}
}

// Write sends p to the output in one piece, never in the middle of an answer
func (r *Repl) Write(p []byte) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	n, err := r.writer.Write(p)
	if err != nil {
		return n, err
	}
	return n, r.writer.Flush()
}

func (r *Repl) prompt() error {
	if r.Prompt == "" {
		return nil
	}
	_, err := r.Write([]byte(r.Prompt))
	return err
}

// Starts the repl
// Blocks execution until the repl closes
// All input will be passed to the handler func. Empty answers are not written
// If it receives an error from the message handler or during writing, it calls Close
func (r *Repl) Run(onMessage MessageHandler) error {
	if err := r.prompt(); err != nil {
		r.Close()
		return fmt.Errorf("failed to write prompt: %w", err)
	}
	for r.scanner.Scan() {
		newMessage := r.scanner.Text()
		res, err := onMessage(newMessage, r)
		if err != nil {
			if res != "" {
				_, _ = r.Write([]byte(res + "\n"))
			}
			r.Close()
			return fmt.Errorf("message handler errored out on message \"%s\": %w", newMessage, err)
		}
		if res != "" {
			if _, err = r.Write([]byte(res + "\n")); err != nil {
				r.Close()
				return fmt.Errorf("failed to write result \"%s\": %w", res, err)
			}
		}
		if err := r.prompt(); err != nil {
			r.Close()
			return fmt.Errorf("failed to write prompt: %w", err)
		}
	}
	return r.scanner.Err()
}

// Close stops the repl if it was still running
// This will also close the reader and writer. Calling it again does nothing
func (r *Repl) Close() {
	r.closeOnce.Do(func() {
		r.Input.Close()
		r.Output.Close()
	})
}
