package plot

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"carprice/dataset"
	chart "github.com/wcharczuk/go-chart/v2"
)

// Predictor is the slice of the model the plot needs.
type Predictor interface {
	Predict(features []float64) (float64, error)
	Trained() bool
}

type Options struct {
	Width  int
	Height int
	Title  string
}

func DefaultOptions() Options {
	return Options{Width: 1000, Height: 600, Title: "Car Price Prediction"}
}

// Renderer draws the dataset scatter and, once the model is trained, the
// regression line.
type Renderer struct {
	opts Options
}

func NewRenderer(opts Options) *Renderer {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.Title == "" {
		opts.Title = def.Title
	}
	return &Renderer{opts: opts}
}

// Render writes a PNG to outputPath. On any error the file at outputPath is
// left as it was.
func (r *Renderer) Render(ds dataset.Dataset, model Predictor, outputPath string) error {
	var buf bytes.Buffer
	if ds.Len() == 0 {
		if err := encodePlaceholder(&buf, r.opts.Width, r.opts.Height, r.opts.Title, "No data yet"); err != nil {
			return fmt.Errorf("draw placeholder: %w", err)
		}
	} else {
		ch, err := r.buildChart(ds, model)
		if err != nil {
			return err
		}
		if err := ch.Render(chart.PNG, &buf); err != nil {
			return fmt.Errorf("render chart: %w", err)
		}
	}
	return writeFileAtomic(outputPath, buf.Bytes())
}

// RegressionLine evaluates model at every distinct year with Hand held at the
// dataset mean. Years are returned ascending.
func RegressionLine(ds dataset.Dataset, model Predictor) ([]float64, []float64, error) {
	if model == nil || !model.Trained() {
		return nil, nil, errors.New("model not trained")
	}
	years := ds.DistinctYears()
	meanHand := ds.MeanHand()
	xs := make([]float64, len(years))
	ys := make([]float64, len(years))
	for i, year := range years {
		price, err := model.Predict([]float64{float64(year), meanHand})
		if err != nil {
			return nil, nil, fmt.Errorf("predict year %d: %w", year, err)
		}
		xs[i] = float64(year)
		ys[i] = price
	}
	return xs, ys, nil
}

func (r *Renderer) buildChart(ds dataset.Dataset, model Predictor) (chart.Chart, error) {
	rows := ds.Rows()
	xs := make([]float64, len(rows))
	ys := make([]float64, len(rows))
	for i, row := range rows {
		xs[i] = float64(row.Year)
		ys[i] = row.Price.InexactFloat64()
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name: "Data Points",
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    5,
				DotColor:    chart.ColorBlue,
			},
			XValues: xs,
			YValues: ys,
		},
	}

	allY := append([]float64(nil), ys...)
	if ds.Len() > 1 && model != nil && model.Trained() {
		lineX, lineY, err := RegressionLine(ds, model)
		if err != nil {
			return chart.Chart{}, err
		}
		series = append(series, chart.ContinuousSeries{
			Name: "Regression Line",
			Style: chart.Style{
				StrokeWidth: 2,
				StrokeColor: chart.ColorRed,
			},
			XValues: lineX,
			YValues: lineY,
		})
		allY = append(allY, lineY...)
	}

	xMin, xMax := paddedRange(xs, 1)
	yMin, yMax := paddedRange(allY, 0.05)

	ch := chart.Chart{
		Title:  r.opts.Title,
		Width:  r.opts.Width,
		Height: r.opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:           "Year",
			Range:          &chart.ContinuousRange{Min: xMin, Max: xMax},
			ValueFormatter: yearFormatter,
		},
		YAxis: chart.YAxis{
			Name:  "Price",
			Range: &chart.ContinuousRange{Min: yMin, Max: yMax},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch, nil
}

// paddedRange widens [min,max] so single values or flat data still give the
// chart a non-empty domain. pad is absolute for the x axis (years) and a
// fraction of the span otherwise.
func paddedRange(values []float64, pad float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return 0, 1
	}
	if pad >= 1 {
		return lo - pad, hi + pad
	}
	span := hi - lo
	if span == 0 {
		span = math.Max(math.Abs(hi), 1)
	}
	return lo - span*pad, hi + span*pad
}

func yearFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.Itoa(int(math.Round(f)))
	}
	return ""
}

func writeFileAtomic(path string, payload []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".plot-*.png")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
