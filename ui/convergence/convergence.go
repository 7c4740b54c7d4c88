// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package convergence renders two views of an evolutionary search session:
// a static PNG histogram of evaluated candidate costs for one generation
// (gonum.org/v1/plot), and an interactive HTML line chart of best-cost-so-far
// across generations or sessions (github.com/MetalBlueberry/go-plotly),
// adapted from the teacher's cmd/gomlx_checkpoints/plots.go.
package convergence

import (
	"encoding/base64"
	"encoding/json"
	"html/template"
	"io"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	grob "github.com/MetalBlueberry/go-plotly/generated/v2.34.0/graph_objects"
	ptypes "github.com/MetalBlueberry/go-plotly/pkg/types"
)

// plotlyCDN is the CDN URL embedded in the rendered HTML page's <script> tag.
const plotlyCDN = "https://cdn.plot.ly/plotly-2.34.0.min.js"

// WriteCostHistogramPNG renders a histogram of evaluated candidate costs for
// one generation to w as a PNG image, sized width x height points.
func WriteCostHistogramPNG(costs []float64, w io.Writer, width, height vg.Length) error {
	p := plot.New()
	p.Title.Text = "Evaluated candidate costs"
	p.X.Label.Text = "predicted cost"
	p.Y.Label.Text = "count"

	values := make(plotter.Values, len(costs))
	copy(values, costs)
	hist, err := plotter.NewHist(values, 16)
	if err != nil {
		return errors.Wrap(err, "convergence.WriteCostHistogramPNG: building histogram")
	}
	p.Add(hist)

	writerTo, err := p.WriterTo(width, height, "png")
	if err != nil {
		return errors.Wrap(err, "convergence.WriteCostHistogramPNG: rendering plot")
	}
	if _, err := writerTo.WriteTo(w); err != nil {
		return errors.Wrap(err, "convergence.WriteCostHistogramPNG: writing PNG")
	}
	return nil
}

// Series is one named best-cost-so-far trace, e.g. one search session or
// one parallel worker, plotted as its own line.
type Series struct {
	Name       string
	Generation []float64
	BestCost   []float64
}

// bestCostFigure builds the Plotly figure JSON for the given series.
func bestCostFigure(series []Series) ([]byte, error) {
	fig := &grob.Fig{
		Layout: &grob.Layout{
			Title: &grob.LayoutTitle{Text: ptypes.S("Best cost so far")},
			Xaxis: &grob.LayoutXaxis{Showgrid: ptypes.B(true), Title: &grob.LayoutXaxisTitle{Text: ptypes.S("generation")}},
			Yaxis: &grob.LayoutYaxis{Showgrid: ptypes.B(true), Title: &grob.LayoutYaxisTitle{Text: ptypes.S("predicted cost")}},
		},
	}
	for _, s := range series {
		fig.Data = append(fig.Data, &grob.Scatter{
			Name: ptypes.S(s.Name),
			Mode: "lines+markers",
			Line: &grob.ScatterLine{Shape: grob.ScatterLineShapeLinear},
			X:    ptypes.DataArray(s.Generation),
			Y:    ptypes.DataArray(s.BestCost),
		})
	}
	figAsJSON, err := json.Marshal(fig)
	if err != nil {
		return nil, errors.Wrap(err, "convergence.bestCostFigure: marshaling plotly figure")
	}
	return figAsJSON, nil
}

var convergenceHTMLTmpl = template.Must(template.New("plotly").Parse(`<!DOCTYPE html>
<head>
	<meta charset="utf-8">
	<script src="{{ .CDN }}"></script>
</head>
<body>
	<div id="plot"></div>
	<script>
		data = JSON.parse(atob('{{ .Figure }}'))
		Plotly.newPlot('plot', data);
	</script>
</body>
</html>`))

// WriteBestCostHTML renders the best-cost-so-far series as a self-contained
// interactive HTML page to w, one line per Series.
func WriteBestCostHTML(series []Series, w io.Writer) error {
	figAsJSON, err := bestCostFigure(series)
	if err != nil {
		return err
	}
	data := &struct {
		CDN    string
		Figure string
	}{
		CDN:    plotlyCDN,
		Figure: base64.StdEncoding.EncodeToString(figAsJSON),
	}
	if err := convergenceHTMLTmpl.Execute(w, data); err != nil {
		return errors.Wrap(err, "convergence.WriteBestCostHTML: rendering template")
	}
	return nil
}
