package sse

import (
	"bytes"
	"log"
	"strings"
)

type State int

const (
	StateIdle State = iota
	StateBuffering
	StateDone
	StateErrored
)

// Fixed terminal substitutions. A transport failure and a successful stream
// that produced no text are distinct conditions and get distinct messages.
const (
	ErrorMessage = "I'm sorry, something went wrong while generating a response. Please try again."
	EmptyMessage = "I couldn't generate a response. Please try rephrasing your message."
)

// Reassembler folds an SSE byte stream of chat-completion delta frames into
// one growing message. It maintains a cursor over a growable buffer and only
// consumes newline-terminated lines, so a frame split across chunk
// boundaries simply waits in the buffer until the rest of it arrives —
// nothing is ever re-parsed or lost at a split.
//
// One Reassembler serves exactly one in-flight request; it is not safe for
// concurrent use and is not meant to be reused after reaching a terminal
// state.
type Reassembler struct {
	state State
	buf   []byte
	text  strings.Builder

	// OnDelta, if set, is called with the full accumulated text after each
	// appended delta.
	OnDelta func(accumulated string)
}

func NewReassembler() *Reassembler {
	return &Reassembler{state: StateIdle}
}

func (r *Reassembler) State() State { return r.state }

// Push feeds one chunk of stream bytes. Terminal states ignore further input.
func (r *Reassembler) Push(chunk []byte) {
	if r.state == StateDone || r.state == StateErrored {
		return
	}
	if r.state == StateIdle {
		r.state = StateBuffering
	}

	r.buf = append(r.buf, chunk...)

	for {
		nl := bytes.IndexByte(r.buf, '\n')
		if nl < 0 {
			return // incomplete line stays buffered
		}
		line := string(bytes.TrimSuffix(r.buf[:nl], []byte("\r")))
		r.buf = r.buf[nl+1:]

		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		if payload == "[DONE]" {
			r.state = StateDone
			r.buf = nil
			return
		}

		frame, err := parseFrame([]byte(payload))
		if err != nil {
			log.Printf("sse: dropping ill-formed frame: %v", err)
			continue
		}
		if len(frame.Choices) == 0 {
			continue
		}
		if delta := frame.Choices[0].Delta.Content; delta != "" {
			r.text.WriteString(delta)
			if r.OnDelta != nil {
				r.OnDelta(r.text.String())
			}
		}
	}
}

// Fail marks the stream as failed by transport error. Partial text is
// discarded.
func (r *Reassembler) Fail() {
	r.state = StateErrored
	r.buf = nil
	r.text.Reset()
}

// Text returns the raw accumulated text so far, without terminal
// substitutions.
func (r *Reassembler) Text() string { return r.text.String() }

// Message returns the user-visible assistant message for a finished stream:
// the accumulated text, or the fixed substitute for an errored or empty
// terminal.
func (r *Reassembler) Message() string {
	switch r.state {
	case StateErrored:
		return ErrorMessage
	case StateDone:
		if r.text.Len() == 0 {
			return EmptyMessage
		}
	}
	return r.text.String()
}
