package codec

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidRaster(t *testing.T, width, height int) *Raster {
	t.Helper()
	r, err := NewRaster(width, height)
	require.NoError(t, err)
	for i := 0; i < len(r.Pix); i += 4 {
		r.Pix[i+0] = byte(i % 251)
		r.Pix[i+1] = byte((i / 3) % 241)
		r.Pix[i+2] = byte((i / 7) % 239)
	}
	return r
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := solidRaster(t, 16, 9)
	r.SetAlphaAt(3, 2, 0x42)

	encoded, err := Encode(r)
	require.NoError(t, err)

	decoded, err := DecodePNG(encoded)
	require.NoError(t, err)

	assert.Equal(t, r.Width, decoded.Width)
	assert.Equal(t, r.Height, decoded.Height)
	assert.Equal(t, r.Pix, decoded.Pix)
}

func TestEncodeIsIdempotentOnItsOwnOutput(t *testing.T) {
	r := solidRaster(t, 12, 5)

	first, err := Encode(r)
	require.NoError(t, err)

	decoded, err := DecodePNG(first)
	require.NoError(t, err)

	second, err := Encode(decoded)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDecodePNGRejectsBadMagic(t *testing.T) {
	_, err := DecodePNG([]byte("not a png"))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestDecodePNGRejectsCrcMismatch(t *testing.T) {
	r := solidRaster(t, 32, 32)
	encoded, err := Encode(r)
	require.NoError(t, err)

	// Flip a byte safely inside the IDAT payload (well clear of IHDR/IEND) without
	// touching its trailing CRC32 field, so the CRC check itself must catch it.
	mid := len(encoded) / 2
	encoded[mid] ^= 0xFF

	_, err = DecodePNG(encoded)
	assert.Error(t, err)
}

func TestDecodePNGPromotesMissingAlphaTo255(t *testing.T) {
	// image/png writes a fully opaque RGBA image as 8-bit truecolor without an
	// alpha channel, so this exercises DecodePNG's RGB path.
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = byte(i)
		img.Pix[i+1] = byte(i * 3)
		img.Pix[i+2] = byte(i * 7)
		img.Pix[i+3] = 0xFF
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	r, err := DecodePNG(buf.Bytes())
	require.NoError(t, err)
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			assert.Equal(t, byte(0xFF), r.AlphaAt(x, y))
		}
	}
}

func TestNewRasterRejectsOversizedDimensions(t *testing.T) {
	_, err := NewRaster(1<<16, 1<<16)
	assert.ErrorIs(t, err, ErrDimensionsTooLarge)
}

func TestCloneIsIndependent(t *testing.T) {
	r := solidRaster(t, 4, 4)
	clone := r.Clone()
	clone.SetAlphaAt(0, 0, 0x01)
	assert.NotEqual(t, r.AlphaAt(0, 0), clone.AlphaAt(0, 0))
}
