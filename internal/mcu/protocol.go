package mcu

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"golang.org/x/text/encoding/unicode"

	"xrdisplay/internal/logging"
)

// Frame tags.
const (
	TagRoll           byte = 0
	TagPitch          byte = 1
	TagYaw            byte = 2
	TagMessage        byte = 3
	TagBrightnessUp   byte = 4
	TagBrightnessDown byte = 5
)

// DefaultMaxMessageBytes bounds text frames when no limit is configured.
const DefaultMaxMessageBytes = 64 * 1024

var (
	// ErrMalformedFrame indicates a frame cut short by the end of the stream.
	ErrMalformedFrame = errors.New("mcu: malformed frame")
	// ErrUnknownFrameTag indicates a tag outside the supported set.
	ErrUnknownFrameTag = errors.New("mcu: unknown frame tag")
	// ErrMessageTooLarge indicates a text frame longer than the configured limit.
	ErrMessageTooLarge = errors.New("mcu: message exceeds limit")
)

// Sink receives decoded telemetry. Methods may be called concurrently from
// different connections.
type Sink interface {
	OnRoll(value float32)
	OnPitch(value float32)
	OnYaw(value float32)
	OnText(text string)
	OnBrightnessUp(level uint8)
	OnBrightnessDown(level uint8)
}

// SinkFuncs adapts optional callbacks to Sink. Nil fields drop the event.
type SinkFuncs struct {
	Roll           func(float32)
	Pitch          func(float32)
	Yaw            func(float32)
	Text           func(string)
	BrightnessUp   func(uint8)
	BrightnessDown func(uint8)
}

func (s SinkFuncs) OnRoll(v float32) {
	if s.Roll != nil {
		s.Roll(v)
	}
}

func (s SinkFuncs) OnPitch(v float32) {
	if s.Pitch != nil {
		s.Pitch(v)
	}
}

func (s SinkFuncs) OnYaw(v float32) {
	if s.Yaw != nil {
		s.Yaw(v)
	}
}

func (s SinkFuncs) OnText(text string) {
	if s.Text != nil {
		s.Text(text)
	}
}

func (s SinkFuncs) OnBrightnessUp(level uint8) {
	if s.BrightnessUp != nil {
		s.BrightnessUp(level)
	}
}

func (s SinkFuncs) OnBrightnessDown(level uint8) {
	if s.BrightnessDown != nil {
		s.BrightnessDown(level)
	}
}

// Decoder reads frames from one connection.
type Decoder struct {
	maxMessage int
	logger     *slog.Logger
}

// NewDecoder returns a decoder that drops text frames longer than maxMessage
// bytes. A non-positive maxMessage uses DefaultMaxMessageBytes.
func NewDecoder(maxMessage int, logger *slog.Logger) *Decoder {
	if maxMessage <= 0 {
		maxMessage = DefaultMaxMessageBytes
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Decoder{maxMessage: maxMessage, logger: logger}
}

// Decode delivers frames from r to sink until r is exhausted. A clean end of
// stream on a tag boundary returns nil. Unknown tags are logged and skipped
// without consuming a body.
func (d *Decoder) Decode(ctx context.Context, r io.Reader, sink Sink) error {
	var tag [1]byte
	var fixed [4]byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.ReadFull(r, tag[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch tag[0] {
		case TagRoll, TagPitch, TagYaw:
			if err := readFixed(r, fixed[:4], tag[0]); err != nil {
				return err
			}
			value := math.Float32frombits(binary.BigEndian.Uint32(fixed[:4]))
			switch tag[0] {
			case TagRoll:
				sink.OnRoll(value)
			case TagPitch:
				sink.OnPitch(value)
			default:
				sink.OnYaw(value)
			}

		case TagMessage:
			if err := readFixed(r, fixed[:4], tag[0]); err != nil {
				return err
			}
			length := binary.BigEndian.Uint32(fixed[:4])
			if uint64(length) > uint64(d.maxMessage) {
				if n, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
					return fmt.Errorf("%w: tag %d: body ended after %d of %d bytes", ErrMalformedFrame, tag[0], n, length)
				}
				logging.WarnWithContext(d.logger, "driver message dropped", "mcu_message_dropped",
					logging.Error(ErrMessageTooLarge),
					logging.Int("length", int(length)),
					logging.Int("limit", d.maxMessage),
					logging.String(logging.FieldImpact, "driver text message not shown"),
				)
				continue
			}
			payload := make([]byte, length)
			if err := readFixed(r, payload, tag[0]); err != nil {
				return err
			}
			sink.OnText(decodeText(payload))

		case TagBrightnessUp, TagBrightnessDown:
			if err := readFixed(r, fixed[:1], tag[0]); err != nil {
				return err
			}
			if tag[0] == TagBrightnessUp {
				sink.OnBrightnessUp(fixed[0])
			} else {
				sink.OnBrightnessDown(fixed[0])
			}

		default:
			d.logger.Warn("unknown frame tag; continuing with next byte",
				logging.Error(ErrUnknownFrameTag),
				logging.Int("tag", int(tag[0])),
				logging.String(logging.FieldEventType, "mcu_unknown_tag"),
				logging.String(logging.FieldErrorHint, "check that the driver matches this protocol version"),
				logging.String(logging.FieldImpact, "following frames may be misread"),
			)
		}
	}
}

func readFixed(r io.Reader, buf []byte, tag byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: tag %d: %w", ErrMalformedFrame, tag, err)
		}
		return err
	}
	return nil
}

// decodeText converts payload to a string, replacing invalid UTF-8 with U+FFFD.
func decodeText(payload []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(payload)
	if err != nil {
		return string([]rune(string(payload)))
	}
	return string(out)
}
