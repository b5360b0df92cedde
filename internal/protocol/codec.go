package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sweeney/thermo-loop/internal/logic"
)

// MaxPayload is the largest frame either codec will produce or accept.
const MaxPayload = 32

// ErrPayloadTooLarge is returned for frames over MaxPayload bytes.
var ErrPayloadTooLarge = errors.New("payload too large")

// ParseError reports a payload that is neither a known command nor a reading.
type ParseError struct {
	Payload string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %q: %v", e.Payload, e.Err)
	}
	return fmt.Sprintf("parse %q: not a command or reading", e.Payload)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Codec converts tagged messages to and from wire frames.
type Codec interface {
	Encode(msg logic.Message) ([]byte, error)
	Decode(frame []byte) (logic.Message, error)
	Name() string
}

// CodecByName resolves a configured wire format. Empty selects Text.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "text":
		return Text{}, nil
	case "cbor":
		return CBOR{}, nil
	}
	return nil, fmt.Errorf("unknown wire format %q", name)
}

// legacyAliases maps command spellings used by older firmware.
var legacyAliases = map[string]logic.Command{
	"AQUECER":  logic.CommandHeat,
	"RESFRIAR": logic.CommandCool,
}

// Text is the NUL-terminated ASCII framing spoken by the radio nodes.
// Frames carry no type tag: decoding tries the command vocabulary first and
// falls back to a signed decimal reading.
type Text struct{}

// Name returns "text".
func (Text) Name() string { return "text" }

// Encode renders msg as a NUL-terminated token.
func (Text) Encode(msg logic.Message) ([]byte, error) {
	var tok string
	switch msg.Kind {
	case logic.KindCommand:
		if !msg.Command.Valid() {
			return nil, fmt.Errorf("encode command %q: %w", msg.Command, logic.ErrUnexpectedMessage)
		}
		tok = string(msg.Command)
	case logic.KindReading:
		tok = strconv.Itoa(msg.Reading)
	default:
		return nil, fmt.Errorf("encode kind %d: %w", msg.Kind, logic.ErrUnexpectedMessage)
	}
	if len(tok)+1 > MaxPayload {
		return nil, ErrPayloadTooLarge
	}
	return append([]byte(tok), 0), nil
}

// Decode classifies a frame. Text after the first NUL is ignored, matching
// the C string semantics of the senders.
func (Text) Decode(frame []byte) (logic.Message, error) {
	if len(frame) > MaxPayload {
		return logic.Message{}, &ParseError{Payload: string(frame[:MaxPayload]), Err: ErrPayloadTooLarge}
	}
	s := string(frame)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	tok := strings.TrimSpace(s)

	if cmd := logic.Command(tok); cmd.Valid() {
		return logic.CommandMessage(cmd), nil
	}
	if cmd, ok := legacyAliases[tok]; ok {
		return logic.CommandMessage(cmd), nil
	}

	// "Temp: 21C" beacon frames.
	if rest, ok := strings.CutPrefix(tok, "Temp:"); ok {
		tok = strings.TrimSuffix(strings.TrimSpace(rest), "C")
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return logic.Message{}, &ParseError{Payload: s}
	}
	return logic.ReadingMessage(n), nil
}
