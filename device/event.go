// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package device

import (
	"errors"

	"github.com/google/uuid"
)

// Event is the completion token of a submitted command.
// Results written by the command are visible once the event is complete.
type Event struct {
	id   uuid.UUID
	done chan struct{}
	err  error
}

func newEvent() *Event {
	return &Event{id: uuid.New(), done: make(chan struct{})}
}

// CompletedEvent returns an event that is already complete without error.
func CompletedEvent() *Event {
	e := newEvent()
	close(e.done)
	return e
}

// failedEvent returns an already complete event carrying err.
func failedEvent(err error) *Event {
	e := newEvent()
	e.complete(err)
	return e
}

// complete must be called exactly once.
func (e *Event) complete(err error) {
	e.err = err
	close(e.done)
}

// ID identifies the command in logs.
func (e *Event) ID() uuid.UUID {
	return e.id
}

// Done returns a channel that is closed when the command completes.
func (e *Event) Done() <-chan struct{} {
	return e.done
}

// IsComplete reports whether the command has finished.
func (e *Event) IsComplete() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the command completes and returns its error.
func (e *Event) Wait() error {
	<-e.done
	return e.err
}

// Err returns the command's error, or nil if it succeeded or is still running.
func (e *Event) Err() error {
	if !e.IsComplete() {
		return nil
	}
	return e.err
}

// WaitAll waits for every event and joins their errors. Nil events are skipped.
func WaitAll(events ...*Event) error {
	var errs []error
	for _, e := range events {
		if e == nil {
			continue
		}
		if err := e.Wait(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
