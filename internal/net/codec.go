package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	frameHeader = 2
	// MaxPayload is the largest payload one frame can carry.
	MaxPayload = 0xFFFF - frameHeader
)

var (
	ErrEmptyFrame    = errors.New("empty frame")
	ErrFrameTooLarge = errors.New("frame too large")
)

// ReadFrame reads one frame and returns its payload (opcode first).
// Wire format: [2B LE total length incl. header][payload].
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [frameHeader]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	payloadLen := int(binary.LittleEndian.Uint16(header[:])) - frameHeader
	if payloadLen <= 0 {
		return nil, fmt.Errorf("frame length %d: %w", payloadLen+frameHeader, ErrEmptyFrame)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload (%d bytes): %w", payloadLen, err)
	}
	return payload, nil
}

// WriteFrame writes payload as one frame with a single Write call.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyFrame
	}
	if len(payload) > MaxPayload {
		return fmt.Errorf("payload %d bytes: %w", len(payload), ErrFrameTooLarge)
	}
	buf := make([]byte, frameHeader+len(payload))
	binary.LittleEndian.PutUint16(buf, uint16(len(buf)))
	copy(buf[frameHeader:], payload)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
