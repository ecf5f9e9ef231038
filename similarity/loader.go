package similarity

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/webp"

	"gocv.io/x/gocv"
)

// ImageLoader loads one family of image formats into a 3-channel BGR Mat.
type ImageLoader interface {
	CanLoad(path string) bool
	LoadImage(path string) (gocv.Mat, error)
}

// DefaultImageLoader handles the formats OpenCV decodes natively.
type DefaultImageLoader struct{}

func (l *DefaultImageLoader) CanLoad(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff":
		_, err := os.Stat(path)
		return err == nil
	}
	return false
}

func (l *DefaultImageLoader) LoadImage(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return img, fmt.Errorf("failed to decode image: %s", path)
	}
	return img, nil
}

// WebPImageLoader decodes WebP through golang.org/x/image, since OpenCV
// builds do not reliably ship WebP support. The decoded frame is
// re-encoded as PNG in memory and handed to IMDecode so the resulting
// Mat has the same BGR layout as every other loader's output.
type WebPImageLoader struct{}

func (l *WebPImageLoader) CanLoad(path string) bool {
	if strings.ToLower(filepath.Ext(path)) != ".webp" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func (l *WebPImageLoader) LoadImage(path string) (gocv.Mat, error) {
	f, err := os.Open(path)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to open webp image %s: %v", path, err)
	}
	defer f.Close()

	decoded, err := webp.Decode(f)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to decode webp image %s: %v", path, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to convert webp image %s: %v", path, err)
	}

	img, err := gocv.IMDecode(buf.Bytes(), gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to load webp image %s: %v", path, err)
	}
	if img.Empty() {
		return img, fmt.Errorf("failed to load webp image: %s", path)
	}
	return img, nil
}

// ImageLoaderRegistry routes a path to the first loader that accepts it.
type ImageLoaderRegistry struct {
	loaders []ImageLoader
}

// NewImageLoaderRegistry creates a registry with the default loaders.
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	return &ImageLoaderRegistry{
		loaders: []ImageLoader{
			&DefaultImageLoader{},
			&WebPImageLoader{},
		},
	}
}

// RegisterLoader adds a custom loader to the registry.
func (r *ImageLoaderRegistry) RegisterLoader(loader ImageLoader) {
	r.loaders = append(r.loaders, loader)
}

// LoadImage loads an image using the appropriate loader.
func (r *ImageLoaderRegistry) LoadImage(path string) (gocv.Mat, error) {
	for _, loader := range r.loaders {
		if loader.CanLoad(path) {
			return loader.LoadImage(path)
		}
	}

	// Fallback: let OpenCV try regardless of extension.
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return img, fmt.Errorf("no suitable loader found for image: %s", path)
	}
	return img, nil
}
