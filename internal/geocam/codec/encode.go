package codec

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
)

// Encode renders a raster into the canonical PNG byte form: 8-bit truecolor+alpha,
// filter type 0 on every scanline, a single IDAT chunk, default zlib compression, and
// no ancillary chunks. Encode is a pure function of r.Pix so two callers encoding the
// same pixels always produce byte-identical output, the property the signing protocol
// and the verifier both depend on.
func Encode(r *Raster) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(pngSignature)

	if err := writeChunk(&buf, "IHDR", encodeIHDR(r.Width, r.Height)); err != nil {
		return nil, err
	}

	idat, err := encodeIDAT(r)
	if err != nil {
		return nil, err
	}
	if err := writeChunk(&buf, "IDAT", idat); err != nil {
		return nil, err
	}

	if err := writeChunk(&buf, "IEND", nil); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func encodeIHDR(width, height int) []byte {
	payload := make([]byte, 13)
	binary.BigEndian.PutUint32(payload[0:4], uint32(width))
	binary.BigEndian.PutUint32(payload[4:8], uint32(height))
	payload[8] = 8                       // bit depth
	payload[9] = colorTypeTruecolorAlpha // color type
	payload[10] = 0                      // compression method
	payload[11] = 0                      // filter method
	payload[12] = 0                      // interlace method
	return payload
}

func encodeIDAT(r *Raster) ([]byte, error) {
	stride := r.Width * 4
	raw := make([]byte, 0, (stride+1)*r.Height)

	for y := 0; y < r.Height; y++ {
		raw = append(raw, 0) // filter type 0: None
		rowStart := y * stride
		raw = append(raw, r.Pix[rowStart:rowStart+stride]...)
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	return compressed.Bytes(), nil
}

func writeChunk(buf *bytes.Buffer, typ string, payload []byte) error {
	var lengthField [4]byte
	binary.BigEndian.PutUint32(lengthField[:], uint32(len(payload)))
	buf.Write(lengthField[:])

	typAndPayload := make([]byte, 0, 4+len(payload))
	typAndPayload = append(typAndPayload, []byte(typ)...)
	typAndPayload = append(typAndPayload, payload...)
	buf.Write(typAndPayload)

	var crcField [4]byte
	binary.BigEndian.PutUint32(crcField[:], crc32.ChecksumIEEE(typAndPayload))
	buf.Write(crcField[:])

	return nil
}
