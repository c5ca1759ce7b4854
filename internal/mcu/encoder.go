package mcu

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
)

// Encoder writes frames in the driver wire format. It is safe for concurrent use.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Roll(v float32) error  { return e.float(TagRoll, v) }
func (e *Encoder) Pitch(v float32) error { return e.float(TagPitch, v) }
func (e *Encoder) Yaw(v float32) error   { return e.float(TagYaw, v) }

func (e *Encoder) BrightnessUp(level uint8) error {
	return e.write([]byte{TagBrightnessUp, level})
}

func (e *Encoder) BrightnessDown(level uint8) error {
	return e.write([]byte{TagBrightnessDown, level})
}

// Text writes a length-prefixed message frame.
func (e *Encoder) Text(text string) error {
	frame := make([]byte, 0, 5+len(text))
	frame = append(frame, TagMessage)
	frame = binary.BigEndian.AppendUint32(frame, uint32(len(text)))
	frame = append(frame, text...)
	return e.write(frame)
}

// Raw writes tag followed by payload unchanged.
func (e *Encoder) Raw(tag byte, payload []byte) error {
	return e.write(append([]byte{tag}, payload...))
}

func (e *Encoder) float(tag byte, v float32) error {
	frame := make([]byte, 0, 5)
	frame = append(frame, tag)
	frame = binary.BigEndian.AppendUint32(frame, math.Float32bits(v))
	return e.write(frame)
}

func (e *Encoder) write(frame []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.w.Write(frame)
	return err
}
