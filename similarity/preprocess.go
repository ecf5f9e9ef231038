package similarity

import (
	"errors"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// ErrImageNotFound reports a comparison input path that does not exist.
var ErrImageNotFound = errors.New("image file not found")

// imagePair holds the preprocessed buffers shared by the extractors for
// one comparison: the BGR images resized to the configured working
// dimensions plus a grayscale derivative of each, computed once.
type imagePair struct {
	img1, img2   gocv.Mat
	gray1, gray2 gocv.Mat
}

func (p *imagePair) Close() {
	p.img1.Close()
	p.img2.Close()
	p.gray1.Close()
	p.gray2.Close()
}

// loadAndPreprocess loads both images and normalizes them to equal-sized
// 3-channel buffers so every extractor operates on the same geometry.
func (c *Calculator) loadAndPreprocess(path1, path2 string) (*imagePair, error) {
	for _, path := range []string{path1, path2} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrImageNotFound, path)
		}
	}

	img1, err := c.loaders.LoadImage(path1)
	if err != nil {
		return nil, err
	}
	img2, err := c.loaders.LoadImage(path2)
	if err != nil {
		img1.Close()
		return nil, err
	}
	defer img1.Close()
	defer img2.Close()

	size := image.Point{X: c.cfg.ResizeWidth, Y: c.cfg.ResizeHeight}

	pair := &imagePair{
		img1:  gocv.NewMat(),
		img2:  gocv.NewMat(),
		gray1: gocv.NewMat(),
		gray2: gocv.NewMat(),
	}

	gocv.Resize(img1, &pair.img1, size, 0, 0, gocv.InterpolationLinear)
	gocv.Resize(img2, &pair.img2, size, 0, 0, gocv.InterpolationLinear)

	gocv.CvtColor(pair.img1, &pair.gray1, gocv.ColorBGRToGray)
	gocv.CvtColor(pair.img2, &pair.gray2, gocv.ColorBGRToGray)

	return pair, nil
}

// probeImage decodes an image at its native size for metadata reporting.
func (c *Calculator) probeImage(path string) (width, height, channels int, err error) {
	img, err := c.loaders.LoadImage(path)
	if err != nil {
		return 0, 0, 0, err
	}
	defer img.Close()
	return img.Cols(), img.Rows(), img.Channels(), nil
}
