package scheduler

import "errors"

var (
	// ErrBusy is returned by Ask while a previous question is still being
	// processed. One user turn runs at a time per conversation.
	ErrBusy = errors.New("a question is already being processed")

	// ErrEmptyQuestion is returned by Ask for blank input.
	ErrEmptyQuestion = errors.New("question must not be empty")

	// ErrNoAgents is returned by New when no agents are given.
	ErrNoAgents = errors.New("at least one agent is required")

	// ErrTooManyAgents is returned by New when more agents are given than
	// a roundtable seats.
	ErrTooManyAgents = errors.New("at most three agents can share a roundtable")
)
