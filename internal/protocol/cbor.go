package protocol

import (
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
	"github.com/sweeney/thermo-loop/internal/logic"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("protocol: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("protocol: CBOR decoder initialization failed: " + err.Error())
	}
}

// envelope is the tagged frame. Integer keys keep it well under MaxPayload.
type envelope struct {
	Kind    uint8  `cbor:"1,keyasint"`
	Command string `cbor:"2,keyasint,omitempty"`
	Reading int64  `cbor:"3,keyasint"`
}

// CBOR frames messages as a deterministic CBOR map with an explicit kind tag,
// so a reading can never be mistaken for a command.
type CBOR struct{}

// Name returns "cbor".
func (CBOR) Name() string { return "cbor" }

// Encode renders msg as a tagged CBOR envelope.
func (CBOR) Encode(msg logic.Message) ([]byte, error) {
	env := envelope{Kind: uint8(msg.Kind)}
	switch msg.Kind {
	case logic.KindCommand:
		if !msg.Command.Valid() {
			return nil, fmt.Errorf("encode command %q: %w", msg.Command, logic.ErrUnexpectedMessage)
		}
		env.Command = string(msg.Command)
	case logic.KindReading:
		env.Reading = int64(msg.Reading)
	default:
		return nil, fmt.Errorf("encode kind %d: %w", msg.Kind, logic.ErrUnexpectedMessage)
	}
	data, err := encMode.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode cbor: %w", err)
	}
	if len(data) > MaxPayload {
		return nil, ErrPayloadTooLarge
	}
	return data, nil
}

// Decode parses a tagged CBOR envelope.
func (CBOR) Decode(frame []byte) (logic.Message, error) {
	if len(frame) > MaxPayload {
		return logic.Message{}, &ParseError{Payload: fmt.Sprintf("%x", frame[:MaxPayload]), Err: ErrPayloadTooLarge}
	}
	var env envelope
	if err := decMode.Unmarshal(frame, &env); err != nil {
		return logic.Message{}, &ParseError{Payload: fmt.Sprintf("%x", frame), Err: err}
	}
	switch logic.Kind(env.Kind) {
	case logic.KindCommand:
		cmd := logic.Command(env.Command)
		if !cmd.Valid() {
			return logic.Message{}, &ParseError{Payload: env.Command, Err: fmt.Errorf("unknown command")}
		}
		return logic.CommandMessage(cmd), nil
	case logic.KindReading:
		if !fitsInt(env.Reading) {
			return logic.Message{}, &ParseError{Payload: fmt.Sprintf("%d", env.Reading), Err: fmt.Errorf("reading out of range")}
		}
		return logic.ReadingMessage(int(env.Reading)), nil
	}
	return logic.Message{}, &ParseError{Payload: fmt.Sprintf("%x", frame), Err: fmt.Errorf("unknown kind %d", env.Kind)}
}

// fitsInt reports whether v survives conversion to int on this platform.
func fitsInt(v int64) bool {
	return v >= math.MinInt && v <= math.MaxInt
}
