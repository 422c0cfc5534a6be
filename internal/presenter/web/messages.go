package web

import (
	"encoding/json"

	"github.com/inercia/promptq/internal/promptqueue"
)

// WSMessage is the envelope for every frame exchanged over /ws.
//
//	{
//	    "type": "message_type",
//	    "data": { ... }  // Optional, type-specific payload
//	}
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ParseMessage parses raw message bytes into a WSMessage.
func ParseMessage(data []byte) (WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return msg, err
}

// Browser -> server.
const (
	// WSMsgTypeAnswer completes the prompt on screen.
	// Data: { "prompt_id": string, "action_id": string }
	// An empty action_id dismisses the prompt.
	WSMsgTypeAnswer = "answer"

	// WSMsgTypeCancelAll cancels the prompt on screen and everything queued
	// behind it. Ignored unless the presenter was built WithCancel.
	// Data: none
	WSMsgTypeCancelAll = "cancel_all"
)

// Server -> browser.
const (
	// WSMsgTypeConnected is sent once, right after the upgrade.
	// Data: { "client_id": string }
	WSMsgTypeConnected = "connected"

	// WSMsgTypePrompt shows a prompt. Sent on Present and replayed to
	// browsers that connect while a prompt is on screen.
	// Data: PromptData
	WSMsgTypePrompt = "prompt"

	// WSMsgTypeDismiss removes the prompt from every browser, either because
	// it was dismissed or because another browser answered it.
	// Data: { "prompt_id": string }
	WSMsgTypeDismiss = "dismiss"

	// WSMsgTypeError reports a rejected frame to the sender only.
	// Data: { "message": string }
	WSMsgTypeError = "error"
)

// PromptData is the payload of a prompt frame.
type PromptData struct {
	PromptID      string               `json:"prompt_id"`
	Type          string               `json:"type"`
	Message       string               `json:"message"`
	HTML          string               `json:"html"`
	Actions       []promptqueue.Action `json:"actions"`
	DefaultAction string               `json:"default_action,omitempty"`
}

// AnswerData is the payload of an answer frame.
type AnswerData struct {
	PromptID string `json:"prompt_id"`
	ActionID string `json:"action_id"`
}

// DismissData is the payload of a dismiss frame.
type DismissData struct {
	PromptID string `json:"prompt_id"`
}

// encode builds a frame. Marshalling these payloads cannot fail.
func encode(msgType string, data interface{}) []byte {
	var dataJSON json.RawMessage
	if data != nil {
		dataJSON, _ = json.Marshal(data)
	}
	msgBytes, _ := json.Marshal(WSMessage{Type: msgType, Data: dataJSON})
	return msgBytes
}
