// Package ocr reads positioned text tokens from a page raster with Tesseract.
package ocr

import (
	"image"
	"strings"
	"unicode/utf8"

	"github.com/otiai10/gosseract/v2"
	"github.com/rotisserie/eris"
	"gocv.io/x/gocv"

	"wiring-tracer/internal/config"
	"wiring-tracer/internal/record"
	"wiring-tracer/pkg/geometry"
)

// Options configures the reader.
type Options struct {
	Language string
	MinChars int
}

// OptionsFromConfig converts the ocr section of the configuration.
func OptionsFromConfig(c config.OCRConfig) Options {
	return Options{Language: c.Language, MinChars: c.MinChars}
}

// Engine wraps a Tesseract client.
type Engine struct {
	client *gosseract.Client
	opts   Options
}

// NewEngine creates a new OCR engine.
func NewEngine(opts Options) (*Engine, error) {
	client := gosseract.NewClient()

	lang := opts.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, eris.Wrap(err, "ocr: set language")
	}

	// Diagram labels are mostly tags and ratings, not dictionary words.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")
	_ = client.SetVariable("language_model_penalty_non_dict_word", "0")

	return &Engine{client: client, opts: opts}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// ReadFile recognizes the words of a page raster.
func (e *Engine) ReadFile(path string) ([]record.TextToken, error) {
	img := gocv.IMRead(path, gocv.IMReadGrayScale)
	if img.Empty() {
		return nil, eris.Errorf("ocr: failed to read %s", path)
	}
	defer img.Close()
	return e.Read(img)
}

// Read recognizes the words of a grayscale image. Token boxes are in image
// pixel coordinates.
func (e *Engine) Read(gray gocv.Mat) ([]record.TextToken, error) {
	if gray.Empty() {
		return nil, eris.New("ocr: empty image")
	}

	processed := preprocess(gray)
	defer processed.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, processed)
	if err != nil {
		return nil, eris.Wrap(err, "ocr: encode image")
	}
	defer buf.Close()

	if err := e.client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return nil, eris.Wrap(err, "ocr: set page segmentation mode")
	}
	if err := e.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return nil, eris.Wrap(err, "ocr: set image")
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, eris.Wrap(err, "ocr: word boxes")
	}
	return Tokens(boxes, e.opts.MinChars), nil
}

// Tokens converts word boxes to text tokens, dropping words shorter than
// minChars runes after trimming.
func Tokens(boxes []gosseract.BoundingBox, minChars int) []record.TextToken {
	out := make([]record.TextToken, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" || utf8.RuneCountInString(text) < minChars {
			continue
		}
		bbox := geometry.NewBBox(float64(b.Box.Min.X), float64(b.Box.Min.Y), float64(b.Box.Max.X), float64(b.Box.Max.Y))
		c := bbox.Center()
		out = append(out, record.TextToken{Text: text, BBox: bbox, X: c.X, Y: c.Y})
	}
	return out
}

// preprocess boosts contrast and binarizes to dark text on a light page.
func preprocess(gray gocv.Mat) gocv.Mat {
	clahe := gocv.NewCLAHEWithParams(2.0, image.Point{8, 8})
	defer clahe.Close()

	enhanced := gocv.NewMat()
	clahe.Apply(gray, &enhanced)
	defer enhanced.Close()

	binary := gocv.NewMat()
	gocv.Threshold(enhanced, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	// Tesseract expects dark text on a light background.
	white := gocv.CountNonZero(binary)
	if float64(white) < 0.5*float64(binary.Rows()*binary.Cols()) {
		gocv.BitwiseNot(binary, &binary)
	}
	return binary
}
