package dashboard

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemvis/dashboard/internal/models"
	"github.com/chemvis/dashboard/internal/render"
)

func testSpec() render.ChartSpec {
	return render.BuildChartSpec(models.TypeDistribution{{Type: "Pump", Count: 2}, {Type: "Valve", Count: 1}})
}

func TestCanvas_AttachDestroysPrevious(t *testing.T) {
	var cv Canvas
	assert.Nil(t, cv.Current())
	assert.Equal(t, 0, cv.Live())

	first := cv.Attach(testSpec())
	second := cv.Attach(testSpec())

	assert.True(t, first.Destroyed())
	assert.False(t, second.Destroyed())
	assert.Same(t, second, cv.Current())
	assert.Equal(t, 1, cv.Live())
	assert.NotEqual(t, first.ID, second.ID)

	cv.Clear()
	cv.Clear()
	assert.True(t, second.Destroyed())
	assert.Nil(t, cv.Current())
	assert.Equal(t, 0, cv.Live())
}

func TestChart_ImageFormats(t *testing.T) {
	var cv Canvas
	chart := cv.Attach(testSpec())
	drawer := render.ChartImage{Width: 120, Height: 120}

	png, err := chart.Image(drawer, render.ImagePNG)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	svg, err := chart.Image(drawer, render.ImageSVG)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")

	chart.Destroy()
	chart.Destroy()
	_, err = chart.Image(drawer, render.ImagePNG)
	assert.ErrorIs(t, err, ErrChartDestroyed)
}

func TestMultiNotifier(t *testing.T) {
	var got []string
	n := MultiNotifier{
		NotifierFunc(func(_ context.Context, n Notice) { got = append(got, "a:"+n.Message) }),
		NotifierFunc(func(_ context.Context, n Notice) { got = append(got, "b:"+n.Message) }),
	}
	n.Notify(context.Background(), Notice{Source: "upload", Message: "bad format"})
	assert.Equal(t, []string{"a:bad format", "b:bad format"}, got)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	n.Notify(context.Background(), Notice{Source: "report", Level: LevelError, Message: "Report download failed", Err: assert.AnError})

	out := buf.String()
	assert.Contains(t, out, `"level":"ERROR"`)
	assert.Contains(t, out, `"msg":"Report download failed"`)
	assert.Contains(t, out, `"source":"report"`)
}
