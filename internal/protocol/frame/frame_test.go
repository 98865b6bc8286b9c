package frame

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/arqlink/internal/protocol"
	"github.com/danmuck/arqlink/internal/protocol/crc"
	"github.com/danmuck/arqlink/internal/testutil/testlog"
)

func TestEncodeWireForm(t *testing.T) {
	testlog.Start(t)
	got := string(Encode(New(protocol.Bit0, []byte("Hola"))))
	if got != "0|Hola|EA05" {
		t.Fatalf("unexpected wire form: %q", got)
	}
	got = string(Encode(Frame{Sequence: protocol.Bit1, Payload: nil, Checksum: 0x00AB}))
	if got != "1||00AB" {
		t.Fatalf("unexpected zero-padded wire form: %q", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testlog.Start(t)
	payloads := []string{"", "Hola", "Hola hola", "ñandú", "with spaces and 1234", strings.Repeat("x", 900)}
	for _, seq := range []protocol.Bit{protocol.Bit0, protocol.Bit1} {
		for _, p := range payloads {
			in := New(seq, []byte(p))
			out, err := Decode(Encode(in))
			if err != nil {
				t.Fatalf("decode seq=%v payload=%q: %v", seq, p, err)
			}
			if out.Sequence != seq || !bytes.Equal(out.Payload, in.Payload) || out.Checksum != crc.String(p) {
				t.Fatalf("round trip mismatch: got=%+v want=%+v", out, in)
			}
			if !out.Verify() {
				t.Fatalf("verify failed after round trip: %+v", out)
			}
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name string
		in   string
	}{
		{name: "too few fields", in: "0|Hola"},
		{name: "too many fields", in: "0|Ho|la|EA05"},
		{name: "empty", in: ""},
		{name: "sequence not integer", in: "a|Hola|EA05"},
		{name: "sequence out of range", in: "2|Hola|EA05"},
		{name: "checksum not hex", in: "0|Hola|ZZZZ"},
		{name: "checksum overflow", in: "0|Hola|1EA05"},
		{name: "checksum empty", in: "0|Hola|"},
		{name: "invalid utf-8", in: "0|\xff\xfe|EA05"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.in))
			if !errors.Is(err, protocol.ErrMalformedFrame) {
				t.Fatalf("expected ErrMalformedFrame, got %v", err)
			}
		})
	}
}

func TestDecodeDoesNotCheckIntegrity(t *testing.T) {
	testlog.Start(t)
	f, err := Decode([]byte("1|Hola|0000"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Verify() {
		t.Fatalf("expected checksum mismatch to survive decode")
	}
	f, err = Decode([]byte("0|Hola|ea05"))
	if err != nil || !f.Verify() {
		t.Fatalf("lowercase hex should decode: f=%+v err=%v", f, err)
	}
}

func TestAckRoundTrip(t *testing.T) {
	testlog.Start(t)
	for _, kind := range []protocol.AckKind{protocol.AckKindACK, protocol.AckKindNACK} {
		for _, seq := range []protocol.Bit{protocol.Bit0, protocol.Bit1} {
			in := Ack{Kind: kind, Sequence: seq}
			out, err := DecodeAck(EncodeAck(in))
			if err != nil || out != in {
				t.Fatalf("ack round trip got=%+v err=%v want=%+v", out, err, in)
			}
		}
	}
	if got := string(EncodeAck(Ack{Kind: protocol.AckKindNACK, Sequence: protocol.Bit1})); got != "NACK 1" {
		t.Fatalf("unexpected ack wire form %q", got)
	}
}

func TestDecodeAckMalformed(t *testing.T) {
	testlog.Start(t)
	for _, in := range []string{"", "ACK", "ACK 0 1", "YES 0", "ACK 2", "ACK x"} {
		if _, err := DecodeAck([]byte(in)); !errors.Is(err, protocol.ErrMalformedFrame) {
			t.Fatalf("DecodeAck(%q) expected ErrMalformedFrame, got %v", in, err)
		}
	}
}

func TestCheckSize(t *testing.T) {
	testlog.Start(t)
	if err := CheckSize(make([]byte, MaxDatagramSize), DefaultLimits()); err != nil {
		t.Fatalf("max size rejected: %v", err)
	}
	if err := CheckSize(make([]byte, MaxDatagramSize+1), DefaultLimits()); !errors.Is(err, ErrDatagramTooLarge) {
		t.Fatalf("expected ErrDatagramTooLarge, got %v", err)
	}
	if !ContainsDelimiter([]byte("a|b")) || ContainsDelimiter([]byte("ab")) {
		t.Fatalf("delimiter detection mismatch")
	}
}
