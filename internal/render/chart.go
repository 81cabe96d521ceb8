package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/chemvis/dashboard/internal/models"
)

// Palette is the fixed chart palette. Categories beyond its length reuse
// colors from the start.
var Palette = []string{"#4f46e5", "#818cf8", "#c084fc", "#e879f9", "#f472b6", "#fb7185"}

// ErrEmptyChart is returned when there is nothing to draw.
var ErrEmptyChart = errors.New("chart has no data")

// ChartSpec describes the type distribution doughnut.
type ChartSpec struct {
	Type   string   `json:"type"`
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
	Colors []string `json:"colors"`
}

// BuildChartSpec maps distribution keys to labels in backend order.
func BuildChartSpec(dist models.TypeDistribution) ChartSpec {
	spec := ChartSpec{
		Type:   "doughnut",
		Labels: dist.Labels(),
		Values: dist.Counts(),
		Colors: make([]string, len(dist)),
	}
	for i := range dist {
		spec.Colors[i] = Palette[i%len(Palette)]
	}
	return spec
}

// Total sums the chart values.
func (s ChartSpec) Total() int {
	total := 0
	for _, v := range s.Values {
		total += v
	}
	return total
}

// ImageFormat selects the chart image encoding.
type ImageFormat string

const (
	ImagePNG ImageFormat = "png"
	ImageSVG ImageFormat = "svg"
)

// ContentType returns the MIME type of the format.
func (f ImageFormat) ContentType() string {
	if f == ImageSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// ChartImage renders a spec to an image.
type ChartImage struct {
	Width  int
	Height int
}

// Render draws the spec as a pie of the distribution.
func (ci ChartImage) Render(spec ChartSpec, format ImageFormat, w io.Writer) error {
	if len(spec.Labels) == 0 || spec.Total() <= 0 {
		return ErrEmptyChart
	}

	values := make([]chart.Value, 0, len(spec.Labels))
	for i, label := range spec.Labels {
		if spec.Values[i] <= 0 {
			continue
		}
		color := drawing.ColorFromHex(strings.TrimPrefix(spec.Colors[i], "#"))
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%d)", label, spec.Values[i]),
			Value: float64(spec.Values[i]),
			Style: chart.Style{
				FillColor:   color,
				StrokeColor: color,
			},
		})
	}

	pie := chart.PieChart{
		Width:  ci.Width,
		Height: ci.Height,
		Values: values,
	}

	provider := chart.PNG
	if format == ImageSVG {
		provider = chart.SVG
	}
	if err := pie.Render(provider, w); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}
