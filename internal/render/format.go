package render

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/rickgao/prediction-pulse/internal/model"
)

// Missing is shown for absent values.
const Missing = "—"

const (
	arrowUp   = "⬆️"
	arrowDown = "⬇️"
)

// Formatter formats numbers for one display locale.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter returns a formatter for tag. The zero tag means English.
func NewFormatter(tag language.Tag) *Formatter {
	if tag == language.Und {
		tag = language.English
	}
	return &Formatter{printer: message.NewPrinter(tag)}
}

// Price formats a probability as a percentage with one decimal.
func (f *Formatter) Price(p *float64) string {
	if p == nil {
		return Missing
	}
	return strconv.FormatFloat(*p*100, 'f', 1, 64) + "%"
}

// Change formats a change with two decimals.
func (f *Formatter) Change(c *float64) string {
	if c == nil {
		return Missing
	}
	return round2(*c) + "%"
}

// Arrow points down for negative changes and up otherwise.
func (f *Formatter) Arrow(c *float64) string {
	if c == nil {
		return ""
	}
	if strings.HasPrefix(round2(*c), "-") {
		return arrowDown
	}
	return arrowUp
}

// Volume formats a volume as dollars with thousands grouping.
func (f *Formatter) Volume(v *float64) string {
	if v == nil {
		return Missing
	}
	return "$" + f.printer.Sprint(number.Decimal(*v, number.MaxFractionDigits(3)))
}

// Date formats an expiration date.
func (f *Formatter) Date(t *model.Time) string {
	if t == nil || t.IsZero() {
		return Missing
	}
	return t.UTC().Format("Jan 2, 2006")
}

// Timestamp formats a chart label.
func (f *Formatter) Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

// round2 renders v with two decimals. Negative zero prints as zero.
func round2(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	if s == "-0.00" {
		return "0.00"
	}
	return s
}

// Percent2 rounds a probability times 100 to two decimals.
func Percent2(p float64) float64 {
	return math.Round(p*100*100) / 100
}
