// Package trace extracts wire geometry from wiring-diagram page rasters.
package trace

import (
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/rotisserie/eris"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"wiring-tracer/internal/config"
	"wiring-tracer/internal/record"
	"wiring-tracer/pkg/geometry"
)

// Options configures wire extraction.
type Options struct {
	BlockSize     int
	C             float32
	Skeletonize   bool
	HoughThresh   int
	MinLineLength int
	MaxLineGap    int
	Merge         MergeParams
}

// DefaultOptions returns default extraction options.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().Geometry)
}

// OptionsFromConfig converts the geometry section of the configuration.
func OptionsFromConfig(g config.GeometryConfig) Options {
	return Options{
		BlockSize:     g.Binarize.BlockSize,
		C:             g.Binarize.C,
		Skeletonize:   g.Skeletonize,
		HoughThresh:   g.Hough.Threshold,
		MinLineLength: g.Hough.MinLineLength,
		MaxLineGap:    g.Hough.MaxLineGap,
		Merge: MergeParams{
			AngleDegEps:   g.MergeLines.AngleDegEps,
			EndpointPxEps: g.MergeLines.EndpointPxEps,
		},
	}
}

// LoadImage decodes a page raster (PNG, JPEG, TIFF or BMP).
func LoadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to open image %s", path)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to decode image %s", path)
	}
	return img, nil
}

// ImageToGray converts a Go image.Image to a single-channel 8-bit gocv.Mat.
func ImageToGray(img image.Image) gocv.Mat {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			mat.SetUCharAt(y, x, g.Y)
		}
	}
	return mat
}

// Binarize applies an inverted Gaussian adaptive threshold, so ink becomes
// white, followed by a 3x3 median blur.
func Binarize(gray gocv.Mat, blockSize int, c float32) gocv.Mat {
	if blockSize%2 == 0 {
		blockSize++
	}
	if blockSize < 3 {
		blockSize = 3
	}

	thr := gocv.NewMat()
	defer thr.Close()
	gocv.AdaptiveThreshold(gray, &thr, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, blockSize, c)

	out := gocv.NewMat()
	gocv.MedianBlur(thr, &out, 3)
	return out
}

// Skeletonize reduces a binary mask to single-pixel-wide lines using
// iterative morphological erosion.
func Skeletonize(mask gocv.Mat) gocv.Mat {
	skeleton := gocv.NewMatWithSize(mask.Rows(), mask.Cols(), gocv.MatTypeCV8U)
	temp := mask.Clone()
	defer temp.Close()

	eroded := gocv.NewMat()
	defer eroded.Close()

	element := gocv.GetStructuringElement(gocv.MorphCross, image.Point{3, 3})
	defer element.Close()

	for {
		gocv.Erode(temp, &eroded, element)

		dilated := gocv.NewMat()
		gocv.Dilate(eroded, &dilated, element)

		// pixels removed by the opening belong to the skeleton
		diff := gocv.NewMat()
		gocv.Subtract(temp, dilated, &diff)
		dilated.Close()

		gocv.BitwiseOr(skeleton, diff, &skeleton)
		diff.Close()

		eroded.CopyTo(&temp)

		if gocv.CountNonZero(eroded) == 0 {
			break
		}
	}

	return skeleton
}

// HoughSegments runs the probabilistic Hough transform (1px, 1°).
func HoughSegments(mask gocv.Mat, threshold, minLineLength, maxLineGap int) []Segment {
	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLinesPWithParams(mask, &lines, 1, math.Pi/180, threshold, float32(minLineLength), float32(maxLineGap))

	segs := make([]Segment, 0, lines.Rows())
	for i := 0; i < lines.Rows(); i++ {
		v := lines.GetVeciAt(i, 0)
		segs = append(segs, Segment{
			A: geometry.PointInt{X: int(v[0]), Y: int(v[1])},
			B: geometry.PointInt{X: int(v[2]), Y: int(v[3])},
		})
	}
	return segs
}

// Extract runs the full wire pipeline on a grayscale page.
func Extract(gray gocv.Mat, opts Options) record.Wires {
	if gray.Empty() {
		return record.Wires{Polylines: []record.Polyline{}, Endpoints: []geometry.PointInt{}}
	}

	mask := Binarize(gray, opts.BlockSize, opts.C)
	defer mask.Close()

	lineMask := mask
	if opts.Skeletonize {
		lineMask = Skeletonize(mask)
		defer lineMask.Close()
	}

	segs := HoughSegments(lineMask, opts.HoughThresh, opts.MinLineLength, opts.MaxLineGap)
	polys := MergeCollinear(segs, opts.Merge)
	if polys == nil {
		polys = []record.Polyline{}
	}

	return record.Wires{
		NSegmentsRaw: len(segs),
		NPolylines:   len(polys),
		Polylines:    polys,
		Endpoints:    Endpoints(polys),
	}
}

// ExtractFile loads a raster from disk and extracts its wires.
func ExtractFile(path string, opts Options) (record.Wires, error) {
	img, err := LoadImage(path)
	if err != nil {
		return record.Wires{}, err
	}
	gray := ImageToGray(img)
	defer gray.Close()

	w := Extract(gray, opts)
	w.PNG = path
	return w, nil
}
