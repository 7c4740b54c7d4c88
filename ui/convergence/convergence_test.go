// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package convergence

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"
)

func TestWriteCostHistogramPNGProducesImageBytes(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCostHistogramPNG([]float64{1, 2, 2, 3, 5, 8, 13}, &buf, 4*vg.Inch, 3*vg.Inch)
	require.NoError(t, err)
	assert.NotEmpty(t, buf.Bytes())
	assert.Equal(t, []byte("\x89PNG"), buf.Bytes()[:4])
}

func TestWriteBestCostHTMLEmbedsFigureAndCDN(t *testing.T) {
	series := []Series{
		{Name: "session-a", Generation: []float64{0, 1, 2}, BestCost: []float64{10, 6, 4}},
		{Name: "session-b", Generation: []float64{0, 1, 2}, BestCost: []float64{12, 9, 5}},
	}
	var buf bytes.Buffer
	err := WriteBestCostHTML(series, &buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Plotly.newPlot")
	assert.Contains(t, out, plotlyCDN)
}

func TestBestCostFigureMarshalsSeriesNames(t *testing.T) {
	series := []Series{{Name: "session-a", Generation: []float64{0, 1}, BestCost: []float64{10, 5}}}
	raw, err := bestCostFigure(series)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "session-a")
}
