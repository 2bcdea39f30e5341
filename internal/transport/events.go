// Package transport is the websocket boundary towards the voice platform:
// it decodes inbound call events, frames outbound response fragments and
// dispatches turns into the session supervisor.
package transport

// Inbound event discriminators. The platform sends two generations of the
// protocol, so both the interaction_type field and the event/type pair are
// honoured.
const (
	interactionCallDetails = "call_details"
	interactionResponse    = "response_required"
	interactionReminder    = "reminder_required"
	interactionUpdateOnly  = "update_only"
	interactionPingPong    = "ping_pong"

	eventInteractionBegin  = "interaction_begin"
	eventInteractionUpdate = "interaction_update"

	updateResponseRequired = "response_required"
	updateInterrupt        = "interrupt"
)

// defaultUtterance stands in when a turn carries no caller text, such as
// the agent-initiated greeting turn at call start.
const defaultUtterance = "Hola"

// TranscriptEntry is one turn record as sent by the voice platform.
type TranscriptEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// InboundEvent is one decoded frame from the voice platform.
type InboundEvent struct {
	InteractionType string            `json:"interaction_type"`
	Event           string            `json:"event"`
	Type            string            `json:"type"`
	Initiator       string            `json:"initiator"`
	ResponseID      int               `json:"response_id"`
	Transcript      []TranscriptEntry `json:"transcript"`
	Timestamp       int64             `json:"timestamp"`
}

type eventKind int

const (
	kindUnknown eventKind = iota
	kindCallStart
	kindResponse
	kindInterrupt
	kindKeepalive
)

func (e InboundEvent) kind() eventKind {
	switch {
	case e.InteractionType == interactionPingPong:
		return kindKeepalive
	case e.InteractionType == interactionCallDetails,
		e.Event == eventInteractionBegin:
		return kindCallStart
	case e.InteractionType == interactionResponse,
		e.InteractionType == interactionReminder,
		e.Event == eventInteractionUpdate && e.Type == updateResponseRequired:
		return kindResponse
	case e.InteractionType == interactionUpdateOnly,
		e.Event == eventInteractionUpdate && e.Type == updateInterrupt:
		return kindInterrupt
	default:
		return kindUnknown
	}
}

// lastUserText returns the caller's most recent transcript utterance, or
// empty when the transcript carries none.
func (e InboundEvent) lastUserText() string {
	for i := len(e.Transcript) - 1; i >= 0; i-- {
		if e.Transcript[i].Role == "user" && e.Transcript[i].Content != "" {
			return e.Transcript[i].Content
		}
	}
	return ""
}

// OutboundFragment is one content chunk of a turn's response. The final
// fragment for a response id has ContentComplete set and empty content.
type OutboundFragment struct {
	ResponseID      int    `json:"response_id"`
	Content         string `json:"content"`
	ContentComplete bool   `json:"content_complete"`
}

// keepaliveReply echoes a ping_pong event with its original timestamp.
type keepaliveReply struct {
	InteractionType string `json:"interaction_type"`
	Timestamp       int64  `json:"timestamp"`
}
