package protocol

import (
	"bytes"
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/sweeney/thermo-loop/internal/logic"
)

var codecs = []Codec{Text{}, CBOR{}}

func TestCommandRoundTrip(t *testing.T) {
	for _, c := range codecs {
		for _, cmd := range logic.Commands {
			frame, err := c.Encode(logic.CommandMessage(cmd))
			if err != nil {
				t.Fatalf("%s: encode %s: %v", c.Name(), cmd, err)
			}
			got, err := c.Decode(frame)
			if err != nil {
				t.Fatalf("%s: decode %s: %v", c.Name(), cmd, err)
			}
			if !got.IsCommand(cmd) {
				t.Errorf("%s: round trip %s gave %s", c.Name(), cmd, got)
			}
		}
	}
}

func TestReadingRoundTrip(t *testing.T) {
	readings := []int{-2147483648, -273, -1, 0, 1, 23, 25, 27, 50, 99999, 2147483647}
	for _, c := range codecs {
		for _, r := range readings {
			frame, err := c.Encode(logic.ReadingMessage(r))
			if err != nil {
				t.Fatalf("%s: encode %d: %v", c.Name(), r, err)
			}
			got, err := c.Decode(frame)
			if err != nil {
				t.Fatalf("%s: decode %d: %v", c.Name(), r, err)
			}
			if got.Kind != logic.KindReading || got.Reading != r {
				t.Errorf("%s: round trip %d gave %s", c.Name(), r, got)
			}
		}
	}
}

func TestTextEncodeIsNULTerminated(t *testing.T) {
	frame, err := Text{}.Encode(logic.ReadingMessage(24))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(frame, []byte("24\x00")) {
		t.Errorf("got %q, want %q", frame, "24\x00")
	}

	frame, _ = Text{}.Encode(logic.CommandMessage(logic.CommandFinished))
	if !bytes.Equal(frame, []byte("FINISHED\x00")) {
		t.Errorf("got %q, want %q", frame, "FINISHED\x00")
	}
}

func TestTextDecodeMalformed(t *testing.T) {
	for _, payload := range []string{"xyz", "", "12abc", "heat", "2 5", "\x00"} {
		_, err := Text{}.Decode([]byte(payload))
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("%q: expected *ParseError, got %v", payload, err)
		}
	}
}

func TestTextDecodeVariants(t *testing.T) {
	tests := []struct {
		frame string
		want  logic.Message
	}{
		{"30\x00", logic.ReadingMessage(30)},
		{"-4", logic.ReadingMessage(-4)},
		{"+7\x00", logic.ReadingMessage(7)},
		{"STABLE\x00garbage", logic.CommandMessage(logic.CommandStable)},
		{"AQUECER\x00", logic.CommandMessage(logic.CommandHeat)},
		{"RESFRIAR\x00", logic.CommandMessage(logic.CommandCool)},
		{"Temp: 21C", logic.ReadingMessage(21)},
		{" 22 ", logic.ReadingMessage(22)},
	}
	for _, tt := range tests {
		got, err := Text{}.Decode([]byte(tt.frame))
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.frame, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: got %s, want %s", tt.frame, got, tt.want)
		}
	}
}

func TestDecodeOversize(t *testing.T) {
	big := bytes.Repeat([]byte("1"), MaxPayload+1)
	for _, c := range codecs {
		_, err := c.Decode(big)
		if !errors.Is(err, ErrPayloadTooLarge) {
			t.Errorf("%s: expected ErrPayloadTooLarge, got %v", c.Name(), err)
		}
	}
}

func TestEncodeRejectsInvalid(t *testing.T) {
	for _, c := range codecs {
		if _, err := c.Encode(logic.Message{}); !errors.Is(err, logic.ErrUnexpectedMessage) {
			t.Errorf("%s: zero message: expected ErrUnexpectedMessage, got %v", c.Name(), err)
		}
		if _, err := c.Encode(logic.CommandMessage("WARM")); !errors.Is(err, logic.ErrUnexpectedMessage) {
			t.Errorf("%s: unknown command: expected ErrUnexpectedMessage, got %v", c.Name(), err)
		}
	}
}

func TestCBORDistinguishesNumericCommand(t *testing.T) {
	// A text frame "25" is a reading; the tagged frame for the reading must
	// not decode as anything else under CBOR.
	frame, err := CBOR{}.Encode(logic.ReadingMessage(25))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := (Text{}).Decode(frame); err == nil {
		t.Error("text codec should not accept a CBOR frame")
	}

	got, err := CBOR{}.Decode(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != logic.KindReading {
		t.Errorf("kind: got %s, want reading", got.Kind)
	}
}

func TestCBORDecodeMalformed(t *testing.T) {
	var pe *ParseError

	if _, err := (CBOR{}).Decode([]byte("xyz")); !errors.As(err, &pe) {
		t.Errorf("garbage: expected *ParseError, got %v", err)
	}

	bad, _ := encMode.Marshal(envelope{Kind: uint8(logic.KindCommand), Command: "WARM"})
	if _, err := (CBOR{}).Decode(bad); !errors.As(err, &pe) {
		t.Errorf("unknown command: expected *ParseError, got %v", err)
	}

	bad, _ = encMode.Marshal(envelope{Kind: 9})
	if _, err := (CBOR{}).Decode(bad); !errors.As(err, &pe) {
		t.Errorf("unknown kind: expected *ParseError, got %v", err)
	}
}

func TestCBORReadingRange(t *testing.T) {
	type rangeCase struct {
		name    string
		reading any
		ok      bool
	}
	tests := []rangeCase{
		{"max int", int64(math.MaxInt), true},
		{"min int", int64(math.MinInt), true},
		{"beyond int64", uint64(math.MaxUint64), false},
	}
	if strconv.IntSize == 32 {
		tests = append(tests, rangeCase{"beyond int32", int64(math.MaxInt32) + 1, false})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := encMode.Marshal(map[int]any{1: uint8(logic.KindReading), 3: tt.reading})
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			got, err := CBOR{}.Decode(frame)
			if !tt.ok {
				var pe *ParseError
				if !errors.As(err, &pe) {
					t.Fatalf("expected *ParseError, got %v (%+v)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if int64(got.Reading) != tt.reading.(int64) {
				t.Errorf("got %d, want %d", got.Reading, tt.reading)
			}
		})
	}
}

func TestFitsInt(t *testing.T) {
	if !fitsInt(0) || !fitsInt(int64(math.MaxInt)) || !fitsInt(int64(math.MinInt)) {
		t.Error("int range values rejected")
	}
	if strconv.IntSize == 32 && (fitsInt(math.MaxInt32+1) || fitsInt(math.MinInt32-1)) {
		t.Error("values beyond int32 accepted on a 32-bit platform")
	}
}

func TestCodecByName(t *testing.T) {
	for name, want := range map[string]string{"": "text", "text": "text", "cbor": "cbor"} {
		c, err := CodecByName(name)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", name, err)
		}
		if c.Name() != want {
			t.Errorf("%q: got %s, want %s", name, c.Name(), want)
		}
	}
	if _, err := CodecByName("json"); err == nil {
		t.Error("expected error for unknown wire format")
	}
}

func TestParseErrorMessage(t *testing.T) {
	_, err := Text{}.Decode([]byte("xyz\x00"))
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != `parse "xyz": not a command or reading` {
		t.Errorf("unexpected message: %s", err)
	}
}
