package chart

import (
	"bytes"
	"encoding/base64"

	chartlib "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

func Render(prices []float64) (string, error) {
	if len(prices) == 0 {
		return "", nil
	}
	if len(prices) == 1 {
		prices = append(prices, prices[0])
	}

	xs := make([]float64, len(prices))
	minPrice, maxPrice := prices[0], prices[0]
	for i, p := range prices {
		xs[i] = float64(i)
		if p < minPrice {
			minPrice = p
		}
		if p > maxPrice {
			maxPrice = p
		}
	}

	graph := chartlib.Chart{
		Width:  400,
		Height: 150,
		Background: chartlib.Style{
			FillColor: drawing.ColorTransparent,
		},
		Canvas: chartlib.Style{
			FillColor: drawing.ColorTransparent,
		},
		XAxis: chartlib.XAxis{Style: chartlib.Hidden()},
		YAxis: chartlib.YAxis{Style: chartlib.Hidden()},
		Series: []chartlib.Series{
			chartlib.ContinuousSeries{
				XValues: xs,
				YValues: prices,
				Style: chartlib.Style{
					StrokeColor: drawing.ColorFromHex("ff9900"),
					StrokeWidth: 2,
				},
			},
		},
	}

	// плоский ряд даёт нулевой диапазон, который go-chart считает ошибкой
	if minPrice == maxPrice {
		graph.YAxis.Range = &chartlib.ContinuousRange{
			Min: minPrice - 1,
			Max: maxPrice + 1,
		}
	}

	var buf bytes.Buffer
	if err := graph.Render(chartlib.PNG, &buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
