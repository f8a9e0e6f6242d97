// Package models contains domain models for the assistant bot.
package models

import "time"

// EventKind is the closed set of inbound event variants the bot reacts to.
type EventKind string

const (
	// KindText is an m.room.message event carrying text (m.text or m.notice).
	KindText EventKind = "text"
	// KindMembership is an m.room.member state transition.
	KindMembership EventKind = "membership"
	// KindOther is any event the bot does not interpret.
	KindOther EventKind = "other"
)

// Message types of m.room.message events.
const (
	MsgTypeText   = "m.text"
	MsgTypeNotice = "m.notice"
)

// MembershipInvite is the membership value of an invite transition.
const MembershipInvite = "invite"

// Event is a room event normalized from the chat transport.
type Event struct {
	ID        string    `json:"eventId"`
	RoomID    string    `json:"roomId"`
	Sender    string    `json:"sender"`
	Kind      EventKind `json:"kind"`
	MsgType   string    `json:"msgType,omitempty"`
	Body      string    `json:"body,omitempty"`
	// Membership is set for KindMembership events.
	Membership string `json:"membership,omitempty"`
	// StateKey is the user targeted by a membership event.
	StateKey string `json:"stateKey,omitempty"`
	// ReplyTo is the event id this message replies to, empty when not a reply.
	ReplyTo   string    `json:"replyTo,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// IsReply reports whether the event replies to another event.
func (e *Event) IsReply() bool {
	return e.ReplyTo != ""
}

// IsText reports whether the event is a text message (m.text or m.notice).
func (e *Event) IsText() bool {
	return e.Kind == KindText && (e.MsgType == MsgTypeText || e.MsgType == MsgTypeNotice)
}

// Room is the ambient room information attached to an inbound event.
type Room struct {
	ID          string `json:"roomId"`
	Name        string `json:"name,omitempty"`
	MemberCount int    `json:"memberCount"`
}

// IsDirect reports whether the room is a two-party conversation.
// A zero count means the membership summary was not synced yet and is
// treated as direct.
func (r Room) IsDirect() bool {
	return r.MemberCount == 2 || r.MemberCount == 0
}
