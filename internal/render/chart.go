package render

import "github.com/rickgao/prediction-pulse/internal/model"

// ChartConfig is a Chart.js line chart configuration.
type ChartConfig struct {
	Type    string       `json:"type"`
	Data    ChartData    `json:"data"`
	Options ChartOptions `json:"options"`
}

// ChartData holds labels and datasets.
type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// ChartDataset is one plotted series. Nil points leave gaps.
type ChartDataset struct {
	Label       string     `json:"label"`
	Data        []*float64 `json:"data"`
	BorderColor string     `json:"borderColor"`
	Fill        bool       `json:"fill"`
}

// ChartOptions holds the chart options the dashboard uses.
type ChartOptions struct {
	Responsive bool `json:"responsive"`
	Plugins    struct {
		Legend struct {
			Display bool `json:"display"`
		} `json:"legend"`
	} `json:"plugins"`
	Scales struct {
		Y struct {
			BeginAtZero bool `json:"beginAtZero"`
			Max         int  `json:"max"`
		} `json:"y"`
	} `json:"scales"`
}

// Chart builds the price-history chart for one market. Points must be
// oldest first. Prices are plotted as percentages on a 0..100 axis.
func (f *Formatter) Chart(label string, points []model.PricePoint) ChartConfig {
	labels := make([]string, len(points))
	data := make([]*float64, len(points))
	for i, p := range points {
		labels[i] = f.Timestamp(p.Timestamp.Time)
		if p.Price != nil {
			v := Percent2(*p.Price)
			data[i] = &v
		}
	}

	cfg := ChartConfig{
		Type: "line",
		Data: ChartData{
			Labels: labels,
			Datasets: []ChartDataset{{
				Label:       "Price Trend – " + label,
				Data:        data,
				BorderColor: "blue",
			}},
		},
	}
	cfg.Options.Responsive = true
	cfg.Options.Plugins.Legend.Display = true
	cfg.Options.Scales.Y.BeginAtZero = true
	cfg.Options.Scales.Y.Max = 100
	return cfg
}
