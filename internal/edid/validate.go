package edid

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrInvalidHeader indicates a base block without the fixed 8-byte EDID header.
	ErrInvalidHeader = errors.New("edid: invalid base block header")
	// ErrBadChecksum indicates a block whose bytes do not sum to zero mod 256.
	ErrBadChecksum = errors.New("edid: block checksum mismatch")
	// ErrExtensionCount indicates byte 126 disagrees with the number of extension blocks.
	ErrExtensionCount = errors.New("edid: extension count mismatch")
)

var header = []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}

// Validate checks descriptor length, the base header, the extension count and
// every block checksum. Patch does not require a valid descriptor.
func Validate(descriptor []byte) error {
	if len(descriptor) == 0 || len(descriptor)%BlockSize != 0 {
		return fmt.Errorf("%w: %d bytes", ErrDescriptorLength, len(descriptor))
	}
	if !bytes.Equal(descriptor[:len(header)], header) {
		return ErrInvalidHeader
	}
	if want, got := len(descriptor)/BlockSize-1, int(descriptor[extensionCountOffset]); want != got {
		return fmt.Errorf("%w: byte 126 is %d, descriptor has %d", ErrExtensionCount, got, want)
	}
	for off := 0; off < len(descriptor); off += BlockSize {
		block := descriptor[off : off+BlockSize]
		if block[checksumOffset] != Checksum(block) {
			return fmt.Errorf("%w: block %d", ErrBadChecksum, off/BlockSize)
		}
	}
	return nil
}

// IdentityToken returns the token of the vendor-specific data block written by
// Patch, looking at the same CTA extension Patch would choose.
func IdentityToken(descriptor []byte) (uuid.UUID, bool) {
	if len(descriptor)%BlockSize != 0 {
		return uuid.Nil, false
	}
	target := -1
	for off := BlockSize; off+BlockSize <= len(descriptor); off += BlockSize {
		if descriptor[off] == ctaTag {
			target = off
		}
	}
	if target < 0 {
		return uuid.Nil, false
	}
	block := descriptor[target : target+BlockSize]
	if block[vsdbOffset] != vsdbTagLength ||
		!bytes.Equal(block[vsdbOffset+1:vsdbOffset+4], OUI[:]) ||
		block[vsdbOffset+5] != vsdbSubType {
		return uuid.Nil, false
	}
	token, err := uuid.FromBytes(block[vsdbTokenStart:vsdbEnd])
	if err != nil {
		return uuid.Nil, false
	}
	return token, true
}
