package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"labchat/internal/app/message"
	"labchat/internal/pkg/errs"
	"labchat/internal/pkg/randx"
)

// Event types of the WebSocket envelope.
const (
	TypeJoinRoom    = "join_room"
	TypeSendMessage = "send_message"
	TypeShareFile   = "share_file"

	TypeReceiveMessage = "receive_message"
	TypeRoomUsers      = "room_users"
	TypeMessageHistory = "message_history"
	TypeError          = "error"
)

// Envelope is the {type, payload} frame used in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is an inbound client event after decoding and validation.
type Event interface {
	eventType() string
}

// JoinRoom asks to register the connection in a room.
type JoinRoom struct {
	RoomKey     string `json:"roomKey" validate:"roomkey"`
	DisplayName string `json:"displayName" validate:"displayname"`

	// SessionID is filled from the connection's session token, never from the payload.
	SessionID string `json:"-"`
}

// SendMessage relays a text message to a room. Bodies are limited to 5000 runes.
type SendMessage struct {
	RoomKey string `json:"roomKey" validate:"roomkey"`
	Body    string `json:"body" validate:"max=5000"`
}

// ShareFile relays a reference to an already uploaded file.
type ShareFile struct {
	RoomKey        string `json:"roomKey" validate:"roomkey"`
	AttachmentURL  string `json:"attachmentUrl" validate:"required,http_url"`
	AttachmentName string `json:"attachmentName" validate:"required,max=255"`
}

func (JoinRoom) eventType() string    { return TypeJoinRoom }
func (SendMessage) eventType() string { return TypeSendMessage }
func (ShareFile) eventType() string   { return TypeShareFile }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Registration only fails for an empty tag, so the errors are ignored.
	_ = v.RegisterValidation("roomkey", func(fl validator.FieldLevel) bool {
		return randx.IsValidRoomKey(fl.Field().String())
	})
	_ = v.RegisterValidation("displayname", func(fl validator.FieldLevel) bool {
		_, ok := randx.NormalizeDisplayName(fl.Field().String())
		return ok
	})
	return v
}

// DecodeEvent parses one inbound frame into a validated Event.
// Failures are *errs.CustomError values carrying the most specific code, for logging.
func DecodeEvent(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errs.NewError(errs.ErrInvalidJSONFormat)
	}

	var ev Event
	switch env.Type {
	case TypeJoinRoom:
		var p JoinRoom
		if err := decodePayload(env.Payload, &p); err != nil {
			return nil, err
		}
		p.DisplayName, _ = randx.NormalizeDisplayName(p.DisplayName)
		ev = p
	case TypeSendMessage:
		var p SendMessage
		if err := decodePayload(env.Payload, &p); err != nil {
			return nil, err
		}
		ev = p
	case TypeShareFile:
		var p ShareFile
		if err := decodePayload(env.Payload, &p); err != nil {
			return nil, err
		}
		p.AttachmentURL = strings.TrimSpace(p.AttachmentURL)
		p.AttachmentName = strings.TrimSpace(p.AttachmentName)
		ev = p
	default:
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	return ev, nil
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError maps the first failing field to the most specific error code.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	switch fe := verrs[0]; {
	case fe.Tag() == "roomkey":
		return errs.NewError(errs.ErrRoomKeyInvalid)
	case fe.Tag() == "displayname":
		return errs.NewError(errs.ErrDisplayNameInvalid)
	case fe.Field() == "Body" && fe.Tag() == "max":
		return errs.NewError(errs.ErrMessageContentTooLong)
	default:
		return fmt.Errorf("%w: %s failed %s", errs.NewError(errs.ErrInvalidParams), fe.Field(), fe.Tag())
	}
}

// encodeFrame wraps payload in an Envelope of the given type.
func encodeFrame(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}

// RoomUsersPayload is the payload of room_users.
type RoomUsersPayload struct {
	RoomKey string        `json:"roomKey"`
	Users   []Participant `json:"users"`
}

// MessageHistoryPayload is the payload of message_history.
type MessageHistoryPayload struct {
	RoomKey  string            `json:"roomKey"`
	Messages []message.Message `json:"messages"`
}

// ErrorPayload is the payload of error.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// errorFrame builds an error frame from err. Errors without an application code are
// reported as ErrUnknown.
func errorFrame(err error) ([]byte, error) {
	customErr := errs.FromError(err)
	return encodeFrame(TypeError, ErrorPayload{Code: customErr.Code, Message: customErr.Message})
}
