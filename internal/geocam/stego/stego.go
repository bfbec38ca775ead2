// Package stego packs and unpacks opaque byte payloads into the alpha channel of an
// RGBA raster, splitting the channel into a body region (rows 0..H-2) and a last-row
// region (row H-1) per the GeoCam wire format (ORIGINAL §3, §4.B).
package stego

import (
	"bytes"
	"encoding/binary"
	"errors"

	"geocam/internal/geocam/codec"
)

var (
	// ErrPayloadTooLarge is returned when basic_info plus its delimiter exceeds the body region.
	ErrPayloadTooLarge = errors.New("stego: payload too large for body region")
	// ErrDelimiterNotFound is returned when ReadBody finds no terminator within the body region.
	ErrDelimiterNotFound = errors.New("stego: delimiter not found in body region")
	// ErrFrameTooLarge is returned when the last-row frame does not fit the row width.
	ErrFrameTooLarge = errors.New("stego: frame too large for last row")
	// ErrNoMagic is returned when the last row does not begin with the frame magic.
	ErrNoMagic = errors.New("stego: last row missing frame magic")
	// ErrLengthOutOfRange is returned when the last-row LEN field overruns the row.
	ErrLengthOutOfRange = errors.New("stego: last-row length out of range")
)

const (
	delimiter   = "###END###"
	magic       = "GCM1"
	magicLen    = 4
	lenFieldLen = 4
	frameHeaderLen = magicLen + lenFieldLen
)

// EmbedBody overwrites the body-region alpha bytes (rows 0..H-2) with basicInfo
// followed by the delimiter, in row-major order starting at (0,0).
func EmbedBody(r *codec.Raster, basicInfo string) error {
	payload := append([]byte(basicInfo), []byte(delimiter)...)
	capacity := r.Width * (r.Height - 1)

	if len(payload) > capacity {
		return ErrPayloadTooLarge
	}

	for i, b := range payload {
		y, x := i/r.Width, i%r.Width
		r.SetAlphaAt(x, y, b)
	}

	return nil
}

// ReadBody reads body-region alpha bytes row-by-row until the delimiter is found and
// returns the UTF-8 bytes preceding it.
func ReadBody(r *codec.Raster) (string, error) {
	capacity := r.Width * (r.Height - 1)
	buf := make([]byte, capacity)

	for i := range buf {
		y, x := i/r.Width, i%r.Width
		buf[i] = r.AlphaAt(x, y)
	}

	idx := bytes.Index(buf, []byte(delimiter))
	if idx < 0 {
		return "", ErrDelimiterNotFound
	}

	return string(buf[:idx]), nil
}

// EmbedLastRow places MAGIC ‖ LEN ‖ frameBytes into alpha bytes of row H-1, starting
// at column 0, padding the remainder of the row with 0xFF.
func EmbedLastRow(r *codec.Raster, frameBytes []byte) error {
	if frameHeaderLen+len(frameBytes) > r.Width {
		return ErrFrameTooLarge
	}

	y := r.Height - 1

	buf := make([]byte, r.Width)
	for i := range buf {
		buf[i] = 0xFF
	}
	copy(buf[0:magicLen], []byte(magic))
	binary.BigEndian.PutUint32(buf[magicLen:frameHeaderLen], uint32(len(frameBytes)))
	copy(buf[frameHeaderLen:frameHeaderLen+len(frameBytes)], frameBytes)

	for x := 0; x < r.Width; x++ {
		r.SetAlphaAt(x, y, buf[x])
	}

	return nil
}

// ReadLastRow parses the last-row frame and returns its BODY bytes.
func ReadLastRow(r *codec.Raster) ([]byte, error) {
	y := r.Height - 1

	if r.Width < frameHeaderLen {
		return nil, ErrNoMagic
	}

	row := make([]byte, r.Width)
	for x := 0; x < r.Width; x++ {
		row[x] = r.AlphaAt(x, y)
	}

	if string(row[0:magicLen]) != magic {
		return nil, ErrNoMagic
	}

	length := binary.BigEndian.Uint32(row[magicLen:frameHeaderLen])
	if frameHeaderLen+int(length) > r.Width {
		return nil, ErrLengthOutOfRange
	}

	body := make([]byte, length)
	copy(body, row[frameHeaderLen:frameHeaderLen+int(length)])

	return body, nil
}

// ClearLastRow sets every alpha byte of row H-1 to 0xFF, used by the canonical-hash
// builder so the signature region never participates in its own signed hash.
func ClearLastRow(r *codec.Raster) {
	y := r.Height - 1
	for x := 0; x < r.Width; x++ {
		r.SetAlphaAt(x, y, 0xFF)
	}
}
