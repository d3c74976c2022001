package types

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Message is the loosely shaped form of an Event as it crosses the
// dispatch boundary: {type: "<name>_<KIND>", payload?, error?, retryAttempt?}
type Message struct {
	Type         string
	Payload      any
	Error        error
	RetryAttempt int
}

// EventType derives the message type of an action's event kind
func EventType(action string, kind EventKind) string {
	return action + "_" + string(kind)
}

// Encode converts an event to its message form
func Encode(ev Event) Message {
	msg := Message{Type: EventType(ev.Action(), ev.Kind())}
	switch e := ev.(type) {
	case Trigger:
		msg.Payload = e.Payload
	case Success:
		msg.Payload = e.Result
	case Retry:
		msg.RetryAttempt = e.Attempt
	case Fail:
		msg.Error = e.Err
	}
	return msg
}

// Decode converts a message back to an event. It returns false for message
// types that do not carry a known suffix or have an empty action name.
func Decode(msg Message) (Event, bool) {
	for _, kind := range Kinds {
		suffix := "_" + string(kind)
		if !strings.HasSuffix(msg.Type, suffix) {
			continue
		}
		name := strings.TrimSuffix(msg.Type, suffix)
		if name == "" {
			return nil, false
		}

		switch kind {
		case KindTrigger:
			return Trigger{ActionName: name, Payload: msg.Payload}, true
		case KindSuccess:
			return Success{ActionName: name, Result: msg.Payload}, true
		case KindRetry:
			return Retry{ActionName: name, Attempt: msg.RetryAttempt}, true
		case KindFail:
			return Fail{ActionName: name, Err: msg.Error}, true
		case KindReset:
			return Reset{ActionName: name}, true
		}
	}
	return nil, false
}

type wireMessage struct {
	Type         string `json:"type"`
	Payload      any    `json:"payload,omitempty"`
	Error        string `json:"error,omitempty"`
	RetryAttempt int    `json:"retryAttempt,omitempty"`
}

// MarshalMessage encodes a message as JSON. Errors travel as their text.
func MarshalMessage(msg Message) ([]byte, error) {
	w := wireMessage{
		Type:         msg.Type,
		Payload:      msg.Payload,
		RetryAttempt: msg.RetryAttempt,
	}
	if msg.Error != nil {
		w.Error = msg.Error.Error()
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("marshal message %s: %w", msg.Type, err)
	}
	return data, nil
}

// UnmarshalMessage decodes a JSON message produced by MarshalMessage
func UnmarshalMessage(data []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return Message{}, fmt.Errorf("unmarshal message: %w", err)
	}
	msg := Message{
		Type:         w.Type,
		Payload:      w.Payload,
		RetryAttempt: w.RetryAttempt,
	}
	if w.Error != "" {
		msg.Error = errors.New(w.Error)
	}
	return msg, nil
}
