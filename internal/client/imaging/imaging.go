// Package imaging resizes and JPEG-encodes photos.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	// RemoteQuality is the JPEG quality of photos sent to the remote store.
	RemoteQuality = 50
	// LocalQuality is the JPEG quality of photos kept on disk.
	LocalQuality = 90
)

// ThumbnailSize is the bounding box of generated thumbnails.
var ThumbnailSize = image.Pt(400, 250)

// Imager is the image-processing collaborator.
type Imager interface {
	// Resize scales img to fit inside size, keeping the aspect ratio.
	Resize(img image.Image, size image.Point) image.Image
	EncodeJPEG(img image.Image, quality int) ([]byte, error)
}

// Default implements Imager with x/image/draw and image/jpeg.
type Default struct {
	Scaler draw.Scaler
}

var _ Imager = Default{}

func (d Default) scaler() draw.Scaler {
	if d.Scaler != nil {
		return d.Scaler
	}
	return draw.CatmullRom
}

// Resize never upscales; an image that already fits is returned as is.
func (d Default) Resize(img image.Image, size image.Point) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || size.X <= 0 || size.Y <= 0 || (w <= size.X && h <= size.Y) {
		return img
	}

	// fit inside the box
	nw, nh := size.X, h*size.X/w
	if nh > size.Y {
		nw, nh = w*size.Y/h, size.Y
	}
	nw, nh = max(nw, 1), max(nh, 1)

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	d.scaler().Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func (d Default) EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads a JPEG or PNG image.
func Decode(b []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
