package edid

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"xrdisplay/internal/logging"
)

const (
	// BlockSize is the length of the base block and of each extension block.
	BlockSize = 128

	extensionCountOffset = 126
	checksumOffset       = 127

	ctaTag      = 0x02
	ctaRevision = 0x03

	// Offsets relative to the start of a CTA extension block.
	ctaDTDOffset   = 2
	ctaFlagsOffset = 3
	vsdbOffset     = 4
	vsdbTokenStart = 10
	vsdbEnd        = 26

	canonicalDTDOffset = vsdbEnd
	// relocatedDTDOffset is written when foreign data blocks are shifted behind
	// the vendor block. Kept one past canonical for compatibility with
	// descriptors already in the field.
	relocatedDTDOffset = vsdbEnd + 1

	vsdbTagLength = (3 << 5) | 21
	vsdbVersion   = 0x02
	vsdbSubType   = 0x07
)

// OUI identifies the specialized display vendor-specific data block.
var OUI = [3]byte{0x5C, 0x12, 0xCA}

var (
	// ErrDescriptorLength indicates a descriptor whose length is not a positive multiple of 128.
	ErrDescriptorLength = errors.New("edid: descriptor length is not a positive multiple of 128")
	// ErrExtensionLimit indicates no further extension block can be counted in byte 126.
	ErrExtensionLimit = errors.New("edid: extension count already at maximum")
	// ErrRelocationOverflow indicates foreign CTA data that cannot be shifted without loss.
	ErrRelocationOverflow = errors.New("edid: foreign data does not fit after relocation")
)

// Checksum returns the byte that makes the 128-byte block sum to zero mod 256.
// Only block[0:127] contributes.
func Checksum(block []byte) byte {
	var sum byte
	for _, b := range block[:checksumOffset] {
		sum += b
	}
	return -sum
}

// Patcher embeds the vendor-specific data block into descriptors. The zero
// value is usable and logs nothing.
type Patcher struct {
	logger *slog.Logger
}

// NewPatcher returns a Patcher that reports structural anomalies to logger.
func NewPatcher(logger *slog.Logger) *Patcher {
	return &Patcher{logger: logging.NewComponentLogger(logger, "edid")}
}

// Patch returns a copy of descriptor carrying the vendor-specific data block
// with token. The input is never modified.
func Patch(descriptor []byte, token uuid.UUID) ([]byte, error) {
	return (&Patcher{}).Patch(descriptor, token)
}

// PatchWithNewToken patches descriptor with a freshly generated token.
func PatchWithNewToken(descriptor []byte) ([]byte, uuid.UUID, error) {
	return (&Patcher{}).PatchWithNewToken(descriptor)
}

// PatchWithNewToken patches descriptor with a freshly generated token.
func (p *Patcher) PatchWithNewToken(descriptor []byte) ([]byte, uuid.UUID, error) {
	token, err := uuid.NewRandom()
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("generate identity token: %w", err)
	}
	out, err := p.Patch(descriptor, token)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return out, token, nil
}

// Patch returns a copy of descriptor carrying the vendor-specific data block
// with token. When several CTA extensions are present the last one is used.
func (p *Patcher) Patch(descriptor []byte, token uuid.UUID) ([]byte, error) {
	if len(descriptor) == 0 || len(descriptor)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrDescriptorLength, len(descriptor))
	}
	logger := p.log()

	out := bytes.Clone(descriptor)
	target := findCTA(out, logger)
	existed := target >= 0

	if !existed {
		if out[extensionCountOffset] == 0xFF {
			return nil, ErrExtensionLimit
		}
		target = len(out)
		out = append(out, make([]byte, BlockSize)...)
	}
	block := out[target : target+BlockSize]

	block[0] = ctaTag
	block[1] = ctaRevision

	if existed && block[ctaDTDOffset] != 0 && block[ctaDTDOffset] != canonicalDTDOffset {
		logger.Debug("relocating foreign CTA data",
			logging.Int("block_offset", target),
			logging.Int("dtd_offset", int(block[ctaDTDOffset])),
		)
		if err := relocate(block); err != nil {
			return nil, err
		}
	} else {
		block[ctaDTDOffset] = canonicalDTDOffset
	}

	if !existed {
		out[extensionCountOffset]++
		out[checksumOffset] = Checksum(out[:BlockSize])
		block[ctaFlagsOffset] = 0
	}

	writeVendorBlock(block, token)
	block[checksumOffset] = Checksum(block)
	return out, nil
}

func (p *Patcher) log() *slog.Logger {
	if p == nil || p.logger == nil {
		return logging.NewNop()
	}
	return p.logger
}

// findCTA returns the offset of the last CTA extension block, or -1.
func findCTA(descriptor []byte, logger *slog.Logger) int {
	target := -1
	matches := 0
	for off := BlockSize; off+BlockSize <= len(descriptor); off += BlockSize {
		if descriptor[off] == ctaTag {
			target = off
			matches++
		}
	}
	if matches > 1 {
		logger.Info("multiple CTA extensions found; using the last",
			logging.Int("count", matches),
			logging.Int("block_offset", target),
		)
	}
	if target >= 0 && descriptor[target+1] != ctaRevision {
		logger.Info("unexpected CTA revision; patching anyway",
			logging.Int("revision", int(descriptor[target+1])),
		)
	}
	return target
}

// relocate shifts the data between the old DTD offset and the checksum down to
// the canonical offset so the vendor block fits in front of it.
func relocate(block []byte) error {
	old := int(block[ctaDTDOffset])
	if old < vsdbOffset || old > checksumOffset {
		return fmt.Errorf("%w: dtd offset %d", ErrRelocationOverflow, old)
	}
	moved := checksumOffset - old
	if spill := canonicalDTDOffset + moved - checksumOffset; spill > 0 {
		for _, b := range block[checksumOffset-spill : checksumOffset] {
			if b != 0 {
				return fmt.Errorf("%w: %d trailing bytes", ErrRelocationOverflow, spill)
			}
		}
	}

	// Offset 4 means DTDs follow the header directly; there is nothing to clear.
	if old-1 > vsdbOffset {
		clear(block[vsdbOffset : old-1])
	}
	copy(block[canonicalDTDOffset:checksumOffset], block[old:checksumOffset])
	if vacated := old - canonicalDTDOffset; vacated > 0 {
		clear(block[checksumOffset-vacated : checksumOffset])
	}
	block[ctaDTDOffset] = relocatedDTDOffset
	return nil
}

func writeVendorBlock(block []byte, token uuid.UUID) {
	block[vsdbOffset] = vsdbTagLength
	copy(block[vsdbOffset+1:vsdbOffset+4], OUI[:])
	block[vsdbOffset+4] = vsdbVersion
	block[vsdbOffset+5] = vsdbSubType
	copy(block[vsdbTokenStart:vsdbEnd], token[:])
}
