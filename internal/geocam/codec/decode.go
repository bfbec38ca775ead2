package codec

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"io"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

const (
	colorTypeTruecolor      = 2
	colorTypeTruecolorAlpha = 6
)

type ihdr struct {
	width, height      int
	bitDepth, colorType byte
}

// DecodePNG decodes an 8-bit truecolor (with or without alpha) PNG with no palette
// into an RGBA raster. Alpha is promoted to 255 when the source has no alpha channel.
func DecodePNG(data []byte) (*Raster, error) {
	if len(data) < len(pngSignature) || !bytes.Equal(data[:len(pngSignature)], pngSignature) {
		return nil, ErrBadMagic
	}

	rest := data[len(pngSignature):]

	var (
		hdr      *ihdr
		idat     bytes.Buffer
		sawIDAT  bool
		sawIEND  bool
	)

	for len(rest) > 0 {
		if sawIEND {
			break
		}
		if len(rest) < 8 {
			return nil, ErrTruncatedChunk
		}

		length := binary.BigEndian.Uint32(rest[0:4])
		typ := string(rest[4:8])

		if uint64(len(rest)) < uint64(8)+uint64(length)+4 {
			return nil, ErrTruncatedChunk
		}

		payload := rest[8 : 8+length]
		wantCRC := binary.BigEndian.Uint32(rest[8+length : 8+length+4])
		gotCRC := crc32.ChecksumIEEE(rest[4 : 8+length])
		if wantCRC != gotCRC {
			return nil, ErrCrcMismatch
		}

		switch typ {
		case "IHDR":
			parsed, err := parseIHDR(payload)
			if err != nil {
				return nil, err
			}
			hdr = parsed
		case "IDAT":
			sawIDAT = true
			idat.Write(payload)
		case "IEND":
			sawIEND = true
		}

		rest = rest[8+length+4:]
	}

	if hdr == nil {
		return nil, ErrMissingIHDR
	}
	if !sawIDAT {
		return nil, ErrMissingIDAT
	}
	if err := checkDimensions(hdr.width, hdr.height); err != nil {
		return nil, err
	}

	zr, err := zlib.NewReader(bytes.NewReader(idat.Bytes()))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}

	return unfilter(raw, hdr)
}

func parseIHDR(payload []byte) (*ihdr, error) {
	if len(payload) != 13 {
		return nil, ErrTruncatedChunk
	}

	width := int(binary.BigEndian.Uint32(payload[0:4]))
	height := int(binary.BigEndian.Uint32(payload[4:8]))
	bitDepth := payload[8]
	colorType := payload[9]
	interlace := payload[12]

	if bitDepth != 8 {
		return nil, ErrUnsupportedColorType
	}
	if colorType != colorTypeTruecolor && colorType != colorTypeTruecolorAlpha {
		return nil, ErrUnsupportedColorType
	}
	if interlace != 0 {
		return nil, ErrUnsupportedColorType
	}

	return &ihdr{width: width, height: height, bitDepth: bitDepth, colorType: colorType}, nil
}

func unfilter(raw []byte, hdr *ihdr) (*Raster, error) {
	channels := 3
	if hdr.colorType == colorTypeTruecolorAlpha {
		channels = 4
	}
	stride := hdr.width * channels

	if len(raw) != (stride+1)*hdr.height {
		return nil, ErrTruncatedChunk
	}

	raster, err := NewRaster(hdr.width, hdr.height)
	if err != nil {
		return nil, err
	}

	prev := make([]byte, stride)
	cur := make([]byte, stride)

	offset := 0
	for y := 0; y < hdr.height; y++ {
		filterType := raw[offset]
		offset++
		copy(cur, raw[offset:offset+stride])
		offset += stride

		if err := unfilterScanline(filterType, cur, prev, channels); err != nil {
			return nil, err
		}

		rowBase := y * hdr.width * 4
		for x := 0; x < hdr.width; x++ {
			srcBase := x * channels
			dstBase := rowBase + x*4
			raster.Pix[dstBase+0] = cur[srcBase+0]
			raster.Pix[dstBase+1] = cur[srcBase+1]
			raster.Pix[dstBase+2] = cur[srcBase+2]
			if channels == 4 {
				raster.Pix[dstBase+3] = cur[srcBase+3]
			} else {
				raster.Pix[dstBase+3] = 0xFF
			}
		}

		prev, cur = cur, prev
	}

	return raster, nil
}

func unfilterScanline(filterType byte, cur, prev []byte, bpp int) error {
	switch filterType {
	case 0: // None
	case 1: // Sub
		for i := range cur {
			var a byte
			if i >= bpp {
				a = cur[i-bpp]
			}
			cur[i] += a
		}
	case 2: // Up
		for i := range cur {
			cur[i] += prev[i]
		}
	case 3: // Average
		for i := range cur {
			var a, b int
			if i >= bpp {
				a = int(cur[i-bpp])
			}
			b = int(prev[i])
			cur[i] += byte((a + b) / 2)
		}
	case 4: // Paeth
		for i := range cur {
			var a, b, c int
			if i >= bpp {
				a = int(cur[i-bpp])
				c = int(prev[i-bpp])
			}
			b = int(prev[i])
			cur[i] += paethPredictor(a, b, c)
		}
	default:
		return ErrInvalidFilter
	}
	return nil
}

func paethPredictor(a, b, c int) byte {
	p := a + b - c
	pa := abs(p - a)
	pb := abs(p - b)
	pc := abs(p - c)
	if pa <= pb && pa <= pc {
		return byte(a)
	}
	if pb <= pc {
		return byte(b)
	}
	return byte(c)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
