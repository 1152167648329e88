package standingsservice

import (
	"bytes"
	"errors"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	standingsdb "github.com/pyramid-league/ladder-server/app/modules/standings/infrastructure/repositories"
)

// ErrNotEnoughHistory means the team has fewer than two rank observations,
// which is not enough to draw a line.
var ErrNotEnoughHistory = errors.New("not enough rank history to chart")

// ChartPalette holds the colors used for rank history charts.
type ChartPalette struct {
	Background  drawing.Color
	PrimaryLine drawing.Color
	AccentLine  drawing.Color
	TextColor   drawing.Color
}

// DefaultChartPalette is a dark theme matching the club site.
func DefaultChartPalette() ChartPalette {
	return ChartPalette{
		Background:  drawing.Color{R: 24, G: 28, B: 24, A: 255},
		PrimaryLine: drawing.Color{R: 86, G: 156, B: 104, A: 255},
		AccentLine:  drawing.Color{R: 212, G: 175, B: 55, A: 255},
		TextColor:   drawing.Color{R: 220, G: 220, B: 220, A: 255},
	}
}

// GenerateRankHistoryChart produces a PNG line chart of a team's rank over
// time. The Y-axis is inverted so rank 1 renders at the top.
func GenerateRankHistoryChart(history []standingsdb.RankPoint, palette ChartPalette) ([]byte, error) {
	if len(history) < 2 {
		return nil, ErrNotEnoughHistory
	}

	xValues := make([]time.Time, len(history))
	yValues := make([]float64, len(history))
	maxRank := 1
	for i, point := range history {
		xValues[i] = point.At
		yValues[i] = float64(point.Rank)
		if point.Rank > maxRank {
			maxRank = point.Rank
		}
	}

	mainSeries := chart.TimeSeries{
		Name:    "Rank History",
		XValues: xValues,
		YValues: yValues,
		Style: chart.Style{
			StrokeColor: palette.PrimaryLine,
			StrokeWidth: 2,
			DotWidth:    4,
			DotColor:    palette.AccentLine,
		},
	}

	graph := chart.Chart{
		Width:  800,
		Height: 400,
		Background: chart.Style{
			FillColor: palette.Background,
		},
		Canvas: chart.Style{
			FillColor: palette.Background,
		},
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01-02"),
			Style: chart.Style{
				FontColor: palette.TextColor,
			},
		},
		YAxis: chart.YAxis{
			Name: "Rank",
			Style: chart.Style{
				FontColor: palette.TextColor,
			},
			Range: &chart.ContinuousRange{
				Descending: true, // rank 1 at the top
				Min:        1,
				Max:        float64(maxRank),
			},
		},
		Series: []chart.Series{mainSeries},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
