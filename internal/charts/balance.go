// Package charts renders ledger figures as images.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"samplace/internal/core"
)

// ErrNotEnoughData is returned when there are fewer than two points to plot.
var ErrNotEnoughData = errors.New("not enough data to draw a chart")

// BalanceChart generates running-balance line charts.
type BalanceChart struct {
	Width  int
	Height int
	// Label prefixes Y axis values, e.g. "RM".
	Label string
}

func NewBalanceChart(label string) *BalanceChart {
	return &BalanceChart{Width: 900, Height: 320, Label: label}
}

// Render draws the balance after each transaction, in ledger order, as PNG.
// The X axis is the position in the ledger so same-day entries stay distinct.
func (c *BalanceChart) Render(txs []core.Transaction) ([]byte, error) {
	if len(txs) < 2 {
		return nil, ErrNotEnoughData
	}

	xValues := make([]float64, len(txs))
	yValues := make([]float64, len(txs))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, t := range txs {
		xValues[i] = float64(i)
		yValues[i] = t.Balance.Float()
		lo = math.Min(lo, yValues[i])
		hi = math.Max(hi, yValues[i])
	}
	// A flat line has a zero-height range, which go-chart refuses to draw.
	if hi-lo < 1 {
		lo, hi = lo-1, hi+1
	}

	graph := chart.Chart{
		Width:  c.Width,
		Height: c.Height,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    20,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
			FillColor: chart.ColorWhite,
		},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(len(txs) - 1)},
			ValueFormatter: func(v interface{}) string {
				f, ok := v.(float64)
				if !ok {
					return ""
				}
				i := int(math.Round(f))
				if i < 0 || i >= len(txs) || math.Abs(f-float64(i)) > 1e-9 {
					return ""
				}
				return txs[i].Date.Format("02 Jan")
			},
			Style: chart.Style{
				FontSize:  9,
				FontColor: chart.ColorBlack,
			},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return core.MoneyFromFloat(f).Format(c.Label)
				}
				return ""
			},
			Style: chart.Style{
				FontSize:  9,
				FontColor: chart.ColorBlack,
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Balance",
				XValues: xValues,
				YValues: yValues,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 2,
					FillColor:   chart.ColorBlue.WithAlpha(40),
				},
			},
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render balance chart: %w", err)
	}
	return buffer.Bytes(), nil
}
