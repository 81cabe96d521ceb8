package dashboard

import (
	"bytes"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/chemvis/dashboard/internal/render"
)

// ErrChartDestroyed is returned when a destroyed chart is asked to draw.
var ErrChartDestroyed = errors.New("chart destroyed")

// Chart is one chart instance bound to the dashboard canvas. Its rendered
// images are cached until it is destroyed.
type Chart struct {
	ID   string
	Spec render.ChartSpec

	mu        sync.Mutex
	images    map[render.ImageFormat][]byte
	destroyed bool
}

func newChart(spec render.ChartSpec) *Chart {
	return &Chart{
		ID:     uuid.New().String(),
		Spec:   spec,
		images: make(map[render.ImageFormat][]byte),
	}
}

// Image renders the chart, reusing an earlier rendering of the same format.
func (c *Chart) Image(drawer render.ChartImage, format render.ImageFormat) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return nil, ErrChartDestroyed
	}
	if img, ok := c.images[format]; ok {
		return img, nil
	}

	var buf bytes.Buffer
	if err := drawer.Render(c.Spec, format, &buf); err != nil {
		return nil, err
	}
	c.images[format] = buf.Bytes()
	return c.images[format], nil
}

// Destroy releases the chart's images. It is safe to call more than once.
func (c *Chart) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed = true
	c.images = nil
}

// Destroyed reports whether Destroy was called.
func (c *Chart) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

// Canvas holds at most one live chart. Attaching a new chart destroys the
// previous one first. Not safe for concurrent use; the controller guards it.
type Canvas struct {
	current *Chart
	live    int
}

// Attach destroys the current chart, if any, and binds a new one.
func (cv *Canvas) Attach(spec render.ChartSpec) *Chart {
	cv.Clear()
	cv.current = newChart(spec)
	cv.live++
	return cv.current
}

// Clear destroys the current chart.
func (cv *Canvas) Clear() {
	if cv.current == nil {
		return
	}
	cv.current.Destroy()
	cv.current = nil
	cv.live--
}

// Current returns the live chart, or nil.
func (cv *Canvas) Current() *Chart {
	return cv.current
}

// Live returns the number of chart instances attached and not destroyed.
func (cv *Canvas) Live() int {
	return cv.live
}
