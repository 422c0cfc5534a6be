// Package promptqueue serializes "ask the user" requests so that prompts are
// presented one at a time, in submission order, with a bounded backlog.
//
// Callers submit a Prompt with Queue.Ask and receive a Future that settles
// exactly once with the user's decision or with "no outcome". A single worker
// goroutine hands prompts to a Presenter, waiting for each one to complete
// before showing the next.
//
// When the backlog reaches the configured maximum, the next request is turned
// into a one-time overflow notice and further requests are dropped until the
// queue falls below capacity again. Queue.CancelAll dismisses the prompt on
// screen and drains everything behind it without presenting.
package promptqueue

import (
	"fmt"
	"strings"
)

// MessageType categorizes a prompt for presentation purposes.
type MessageType string

const (
	// MessageTypeDefault is a plain prompt with no extra styling.
	MessageTypeDefault MessageType = "default"
	// MessageTypeInfo is an informational prompt.
	MessageTypeInfo MessageType = "info"
	// MessageTypeWarning asks the user to pay attention.
	MessageTypeWarning MessageType = "warning"
	// MessageTypeError reports a failure the user must acknowledge.
	MessageTypeError MessageType = "error"
)

// ParseMessageType converts a string to a MessageType.
// An empty string yields MessageTypeDefault.
func ParseMessageType(s string) (MessageType, error) {
	switch MessageType(strings.ToLower(strings.TrimSpace(s))) {
	case "", MessageTypeDefault:
		return MessageTypeDefault, nil
	case MessageTypeInfo:
		return MessageTypeInfo, nil
	case MessageTypeWarning:
		return MessageTypeWarning, nil
	case MessageTypeError:
		return MessageTypeError, nil
	default:
		return "", fmt.Errorf("unknown message type %q", s)
	}
}

// Action is a selectable choice offered with a prompt.
type Action struct {
	// ID is the machine-readable identifier reported when the action is selected.
	ID string `json:"id" yaml:"id"`
	// Label is the human-readable text displayed to the user.
	Label string `json:"label" yaml:"label"`
}

// Prompt describes a single question put to the user.
type Prompt struct {
	// ID is assigned by the queue at admission and matches the Future's ID.
	ID string `json:"id"`
	// Message is the text displayed to the user.
	Message string `json:"message"`
	// Actions are the choices, in display order. A prompt without actions is
	// a notice that the user can only dismiss.
	Actions []Action `json:"actions,omitempty"`
	// Type selects the presentation style.
	Type MessageType `json:"type,omitempty"`
	// DefaultAction is the ID of the action focused first.
	DefaultAction string `json:"default_action,omitempty"`
}

// Action returns the action with the given ID.
func (p Prompt) Action(id string) (Action, bool) {
	if id == "" {
		return Action{}, false
	}
	for _, a := range p.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}

// DefaultIndex returns the index of the default action, or 0 when none is set
// or the default does not name one of the actions.
func (p Prompt) DefaultIndex() int {
	for i, a := range p.Actions {
		if a.ID == p.DefaultAction {
			return i
		}
	}
	return 0
}

// Outcome is the terminal value delivered to a caller.
// The zero value means "no outcome".
type Outcome struct {
	ActionID string `json:"action_id,omitempty"`
	Label    string `json:"label,omitempty"`
}

// OK reports whether the user selected an action.
func (o Outcome) OK() bool {
	return o.ActionID != ""
}

// Reason records which path settled a Future.
type Reason string

const (
	// ReasonAnswered means the user selected one of the prompt's actions.
	ReasonAnswered Reason = "answered"
	// ReasonDismissed means the prompt was closed without selecting an action.
	ReasonDismissed Reason = "dismissed"
	// ReasonDropped means the request arrived while the queue was full and the
	// overflow notice had already been shown.
	ReasonDropped Reason = "dropped"
	// ReasonCancelled means CancelAll discarded the request.
	ReasonCancelled Reason = "cancelled"
	// ReasonClosed means the queue was closed before the request completed.
	ReasonClosed Reason = "closed"
)
