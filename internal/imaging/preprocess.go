package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// DefaultInputSize is the square input edge of the classification network.
const DefaultInputSize = 224

// Preprocess resizes img so its shortest side equals size, center-crops it to size×size
// and returns an RGB float32 tensor in CHW layout scaled to [0, 1].
func Preprocess(img image.Image, size int) ([]float32, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid input size %d", size)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("image has empty bounds %v", b)
	}

	rw, rh := scaledSize(w, h, size)
	src := opaque(img)
	resized := image.NewRGBA(image.Rect(0, 0, rw, rh))
	draw.BiLinear.Scale(resized, resized.Bounds(), src, src.Bounds(), draw.Src, nil)

	left := cropOffset(rw, size)
	top := cropOffset(rh, size)

	plane := size * size
	out := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		row := (top+y)*resized.Stride + left*4
		for x := 0; x < size; x++ {
			i := row + x*4
			o := y*size + x
			out[o] = float32(resized.Pix[i]) / 255
			out[plane+o] = float32(resized.Pix[i+1]) / 255
			out[2*plane+o] = float32(resized.Pix[i+2]) / 255
		}
	}
	return out, nil
}

// cropOffset centers a size-wide window in n, rounding half to even.
func cropOffset(n, size int) int {
	return int(math.RoundToEven(float64(n-size) / 2))
}

// opaque drops the alpha channel and keeps the stored colour values, so
// transparent pixels are not darkened by premultiplication.
func opaque(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < b.Dy(); y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()*4], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	case *image.NRGBA64:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				c := src.NRGBA64At(b.Min.X+x, b.Min.Y+y)
				i := out.PixOffset(x, y)
				out.Pix[i] = uint8(c.R >> 8)
				out.Pix[i+1] = uint8(c.G >> 8)
				out.Pix[i+2] = uint8(c.B >> 8)
			}
		}
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				i := out.PixOffset(x, y)
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = c.R, c.G, c.B
			}
		}
	}
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}

// scaledSize keeps the aspect ratio and maps the shortest side to size.
func scaledSize(w, h, size int) (int, int) {
	if w <= h {
		return size, max(size, int(float64(size)*float64(h)/float64(w)))
	}
	return max(size, int(float64(size)*float64(w)/float64(h))), size
}
