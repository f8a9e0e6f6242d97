package matrix

import (
	"encoding/json"
	"time"

	"maunium.net/go/mautrix/event"

	"github.com/unifiedui/assistant-bot/internal/domain/models"
)

// toModel normalizes a mautrix event. Undecodable content degrades to KindOther.
func toModel(roomID string, evt *event.Event) *models.Event {
	if evt.RoomID != "" {
		roomID = string(evt.RoomID)
	}

	out := &models.Event{
		ID:        string(evt.ID),
		RoomID:    roomID,
		Sender:    string(evt.Sender),
		Kind:      models.KindOther,
		Timestamp: time.UnixMilli(evt.Timestamp).UTC(),
	}

	switch evt.Type.Type {
	case event.EventMessage.Type:
		var content *event.MessageEventContent
		if !decodeContent(evt, &content) {
			return out
		}
		out.Kind = models.KindText
		out.MsgType = string(content.MsgType)
		out.Body = content.Body
		if content.RelatesTo != nil && content.RelatesTo.InReplyTo != nil {
			out.ReplyTo = string(content.RelatesTo.InReplyTo.EventID)
		}
	case event.StateMember.Type:
		var content *event.MemberEventContent
		if !decodeContent(evt, &content) {
			return out
		}
		out.Kind = models.KindMembership
		out.Membership = string(content.Membership)
		out.StateKey = evt.GetStateKey()
	}

	return out
}

// decodeContent uses the content parsed by the syncer when present and
// decodes the raw JSON otherwise (/messages and /event responses).
func decodeContent[T any](evt *event.Event, target **T) bool {
	if parsed, ok := evt.Content.Parsed.(*T); ok && parsed != nil {
		*target = parsed
		return true
	}
	if len(evt.Content.VeryRaw) == 0 {
		return false
	}
	decoded := new(T)
	if err := json.Unmarshal(evt.Content.VeryRaw, decoded); err != nil {
		return false
	}
	*target = decoded
	return true
}
