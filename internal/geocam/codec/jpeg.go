package codec

import (
	"bytes"
	"image"
	"image/draw"
	"image/jpeg"
)

// DecodeJPEG decodes a baseline/progressive JPEG and promotes it to an opaque RGBA
// raster, used for capture images submitted in JPEG form (ORIGINAL §4.E step 1).
func DecodeJPEG(data []byte) (*Raster, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	raster, err := NewRaster(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)

	for y := 0; y < bounds.Dy(); y++ {
		srcRow := y * dst.Stride
		dstRow := y * raster.Width * 4
		copy(raster.Pix[dstRow:dstRow+raster.Width*4], dst.Pix[srcRow:srcRow+raster.Width*4])
	}
	for i := 3; i < len(raster.Pix); i += 4 {
		raster.Pix[i] = 0xFF
	}

	return raster, nil
}
