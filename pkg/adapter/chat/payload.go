package chat

import (
	"fmt"

	"github.com/carebridgehq/comms/pkg/comms"
)

// messageBody is the wire representation of message content. The same shape
// is used for outbound sends and inbound webhooks so a conversation reads
// symmetrically on both sides of the provider.
type messageBody struct {
	Text           string            `json:"text,omitempty"`
	MediaURL       string            `json:"media_url,omitempty"`
	Caption        string            `json:"caption,omitempty"`
	FileName       string            `json:"file_name,omitempty"`
	TemplateID     string            `json:"template_id,omitempty"`
	TemplateParams map[string]string `json:"template_params,omitempty"`
}

// sendPayload is the outbound request body for the provider's messages
// endpoint.
type sendPayload struct {
	To   string      `json:"to"`
	Type string      `json:"type"`
	Body messageBody `json:"body"`
}

// sendResponse is the provider's acknowledgment of an accepted message.
type sendResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// errorResponse is the provider's error envelope.
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// inboundPayload is the provider webhook body for a message sent to us.
type inboundPayload struct {
	MessageID      string      `json:"message_id"`
	From           string      `json:"from"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Timestamp      int64       `json:"timestamp"`
	Type           string      `json:"type"`
	Body           messageBody `json:"body"`
}

// toWire maps the generic message onto the provider payload.
func toWire(msg comms.Message) (sendPayload, error) {
	body := messageBody{}
	switch msg.Type {
	case comms.TypeText, comms.TypeRichText:
		body.Text = msg.Content.Text
	case comms.TypeImage, comms.TypeVideo, comms.TypeAudio:
		body.MediaURL = msg.Content.MediaURL
		body.Caption = msg.Content.Caption
	case comms.TypeDocument:
		body.MediaURL = msg.Content.MediaURL
		body.Caption = msg.Content.Caption
		body.FileName = msg.Content.FileName
	case comms.TypeTemplate:
		body.TemplateID = msg.Content.TemplateID
		body.TemplateParams = msg.Content.TemplateParams
	default:
		return sendPayload{}, fmt.Errorf("unsupported message type %q", msg.Type)
	}

	return sendPayload{
		To:   msg.Recipient.Identifier,
		Type: string(msg.Type),
		Body: body,
	}, nil
}

// fromWire maps an inbound webhook body back onto the generic content model.
func fromWire(typ string, body messageBody) (comms.MessageType, comms.Content) {
	return comms.MessageType(typ), comms.Content{
		Text:           body.Text,
		MediaURL:       body.MediaURL,
		Caption:        body.Caption,
		FileName:       body.FileName,
		TemplateID:     body.TemplateID,
		TemplateParams: body.TemplateParams,
	}
}
