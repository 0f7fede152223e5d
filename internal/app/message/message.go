/*
Package message defines the chat message model shared by the live relay and the history stores.

A Message is immutable once built. The copy written to the history store is the durable
record; the copy broadcast to connections only serves live delivery.
*/
package message

import (
	"time"

	"labchat/internal/pkg/randx"
)

// Kind distinguishes user text, shared files and server notices.
type Kind string

const (
	KindText   Kind = "text"
	KindFile   Kind = "file"
	KindSystem Kind = "system"
)

// SystemSender is the sender name of join/leave notices.
const SystemSender = "System"

// Attachment references a file that was already uploaded to object storage.
type Attachment struct {
	URL  string `json:"url" bson:"url"`
	Name string `json:"name" bson:"name"`
}

// Message is one entry of a room's stream.
type Message struct {
	ID         string      `json:"id" bson:"_id"`
	RoomKey    string      `json:"roomKey" bson:"roomKey"`
	Sender     string      `json:"sender" bson:"sender"`
	Body       string      `json:"body,omitempty" bson:"body,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty" bson:"attachment,omitempty"`
	Kind       Kind        `json:"kind" bson:"kind"`
	CreatedAt  time.Time   `json:"createdAt" bson:"createdAt"`
}

// NewText builds a text message stamped with a fresh id and now.
func NewText(roomKey, sender, body string, now time.Time) Message {
	return Message{
		ID:        randx.MessageID(),
		RoomKey:   roomKey,
		Sender:    sender,
		Body:      body,
		Kind:      KindText,
		CreatedAt: now.UTC(),
	}
}

// NewFile builds a file message. Body carries the file name so clients without
// attachment rendering still show something.
func NewFile(roomKey, sender, url, name string, now time.Time) Message {
	return Message{
		ID:         randx.MessageID(),
		RoomKey:    roomKey,
		Sender:     sender,
		Body:       name,
		Attachment: &Attachment{URL: url, Name: name},
		Kind:       KindFile,
		CreatedAt:  now.UTC(),
	}
}

// NewSystem builds a server notice such as "Asha joined the room".
func NewSystem(roomKey, body string, now time.Time) Message {
	return Message{
		ID:        randx.MessageID(),
		RoomKey:   roomKey,
		Sender:    SystemSender,
		Body:      body,
		Kind:      KindSystem,
		CreatedAt: now.UTC(),
	}
}

// Persistable reports whether the message belongs in durable history.
// System notices are live-only.
func (m Message) Persistable() bool {
	return m.Kind == KindText || m.Kind == KindFile
}
