package edid

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	edidparser "github.com/anoopengineer/edidparser/edid"
)

// ErrTruncated indicates a descriptor shorter than one base block.
var ErrTruncated = errors.New("edid: descriptor shorter than base block")

// Mode is one advertised resolution.
type Mode struct {
	Width   int
	Height  int
	Refresh int
}

// Info is the subset of a descriptor discovery needs.
type Info struct {
	ManufacturerID string
	ModelName      string
	Modes          []Mode
}

// Parse reads the manufacturer id, monitor name and the modes of the
// detailed timing descriptors. Refresh is pixel clock over total pixels,
// rounded to the nearest hertz.
func Parse(raw []byte) (Info, error) {
	if len(raw) < BlockSize {
		return Info{}, fmt.Errorf("%w: %d bytes", ErrTruncated, len(raw))
	}
	if !bytes.Equal(raw[:len(header)], header) {
		return Info{}, ErrInvalidHeader
	}

	parsed, err := edidparser.NewEdid(raw)
	if err != nil {
		return Info{}, fmt.Errorf("parse edid: %w", err)
	}

	info := Info{
		ManufacturerID: strings.TrimSpace(string(parsed.ManufacturerId)),
		ModelName:      strings.TrimSpace(string(parsed.MonitorName)),
	}
	for _, dtd := range parsed.DetailedTimingDescriptors {
		width := int(dtd.HorizontalActive)
		height := int(dtd.VerticalActive)
		total := (width + int(dtd.HorizontalBlanking)) * (height + int(dtd.VerticalBlanking))
		// Display descriptors (monitor name, range limits) carry a zero clock.
		pixelClockKHz := int(dtd.PixelClock)
		if pixelClockKHz == 0 || total == 0 {
			continue
		}
		refresh := int(math.Round(float64(pixelClockKHz) * 1000 / float64(total)))
		info.Modes = append(info.Modes, Mode{Width: width, Height: height, Refresh: refresh})
	}
	return info, nil
}
