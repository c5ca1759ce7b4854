package testsupport

import "encoding/binary"

// Timing is one detailed timing written by BuildEDID.
type Timing struct {
	Width   int
	Height  int
	Refresh int
}

const (
	timingHBlank = 280
	timingVBlank = 45
)

// BuildEDID returns a valid 128-byte base block for manufacturer (a 3-letter
// PNP id) with a monitor name descriptor and up to three detailed timings.
func BuildEDID(manufacturer, name string, timings ...Timing) []byte {
	raw := make([]byte, 128)
	copy(raw, []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00})

	var code uint16
	for i := 0; i < 3 && i < len(manufacturer); i++ {
		code = code<<5 | uint16(manufacturer[i]-'A'+1)&0x1F
	}
	binary.BigEndian.PutUint16(raw[8:10], code)
	binary.LittleEndian.PutUint16(raw[10:12], 0x0424)
	raw[18], raw[19] = 1, 4

	// Unused standard timing slots.
	for i := 38; i < 54; i++ {
		raw[i] = 0x01
	}

	slot := 54
	if name != "" {
		d := raw[slot : slot+18]
		d[3] = 0xFC
		text := []byte(name)
		if len(text) > 13 {
			text = text[:13]
		}
		n := copy(d[5:], text)
		if n < 13 {
			d[5+n] = 0x0A
			for i := 5 + n + 1; i < 18; i++ {
				d[i] = 0x20
			}
		}
		slot += 18
	}
	for _, tm := range timings {
		if slot+18 > 126 {
			break
		}
		writeTiming(raw[slot:slot+18], tm)
		slot += 18
	}

	raw[127] = checksum(raw)
	return raw
}

func writeTiming(d []byte, tm Timing) {
	hTotal := tm.Width + timingHBlank
	vTotal := tm.Height + timingVBlank
	units := (tm.Refresh*hTotal*vTotal + 5000) / 10000
	binary.LittleEndian.PutUint16(d[0:2], uint16(units))
	d[2] = byte(tm.Width)
	d[3] = byte(timingHBlank & 0xFF)
	d[4] = byte((tm.Width>>8)&0x0F)<<4 | byte((timingHBlank>>8)&0x0F)
	d[5] = byte(tm.Height)
	d[6] = byte(timingVBlank & 0xFF)
	d[7] = byte((tm.Height>>8)&0x0F)<<4 | byte((timingVBlank>>8)&0x0F)
}

func checksum(block []byte) byte {
	var sum byte
	for _, b := range block[:127] {
		sum += b
	}
	return -sum
}
