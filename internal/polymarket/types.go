package polymarket

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// flexString decodes a JSON string or number into its text.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(data)
	return nil
}

// GammaMarket is one market from the Gamma listing. The API has used
// several spellings for the same field; UnmarshalJSON takes the first one
// present.
type GammaMarket struct {
	ID          string
	Title       string
	Slug        string
	Description string
	Status      string
	EndTime     string
	Volume      decimal.Decimal
	Liquidity   decimal.Decimal
	Categories  []string
}

type gammaWire struct {
	ID           flexString          `json:"id"`
	Title        string              `json:"title"`
	Question     string              `json:"question"`
	Slug         string              `json:"slug"`
	Description  string              `json:"description"`
	Status       string              `json:"status"`
	State        string              `json:"state"`
	EndTime      string              `json:"endTime"`
	EndTimeSnake string              `json:"end_time"`
	EndDate      string              `json:"endDate"`
	VolumeUsd24h decimal.NullDecimal `json:"volumeUsd24h"`
	VolumeUSD24h decimal.NullDecimal `json:"volumeUSD24h"`
	VolumeUSD    decimal.NullDecimal `json:"volumeUSD"`
	TotalVolume  decimal.NullDecimal `json:"totalVolumeUSD"`
	Liquidity    decimal.NullDecimal `json:"liquidity"`
	Categories   []string            `json:"categories"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *GammaMarket) UnmarshalJSON(data []byte) error {
	var w gammaWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = GammaMarket{
		ID:          string(w.ID),
		Title:       firstString(w.Title, w.Question),
		Slug:        w.Slug,
		Description: w.Description,
		Status:      firstString(w.Status, w.State),
		EndTime:     firstString(w.EndTime, w.EndTimeSnake, w.EndDate),
		Volume:      firstDecimal(w.VolumeUsd24h, w.VolumeUSD24h, w.VolumeUSD, w.TotalVolume),
		Liquidity:   firstDecimal(w.Liquidity),
		Categories:  w.Categories,
	}
	return nil
}

// Name is the market's display name.
func (m GammaMarket) Name() string {
	return firstString(m.Title, m.Slug)
}

func firstString(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstDecimal(values ...decimal.NullDecimal) decimal.Decimal {
	for _, v := range values {
		if v.Valid {
			return v.Decimal
		}
	}
	return decimal.Zero
}

// CLOBToken is one outcome token on a CLOB market. Price is a probability.
type CLOBToken struct {
	Outcome string              `json:"outcome"`
	Price   decimal.NullDecimal `json:"price"`
}

// CLOBMarket is the CLOB view of a market. YesPrice and NoPrice are in
// cents when present; Tokens is used otherwise.
type CLOBMarket struct {
	YesPrice decimal.NullDecimal `json:"yesPrice"`
	NoPrice  decimal.NullDecimal `json:"noPrice"`
	Tokens   []CLOBToken         `json:"tokens"`
}

// Prices returns the yes and no prices in cents.
func (c *CLOBMarket) Prices() (yes, no decimal.Decimal, ok bool) {
	if c.YesPrice.Valid && c.NoPrice.Valid {
		return c.YesPrice.Decimal, c.NoPrice.Decimal, true
	}

	var yesOK, noOK bool
	for _, t := range c.Tokens {
		if !t.Price.Valid {
			continue
		}
		switch strings.ToLower(t.Outcome) {
		case "yes":
			yes, yesOK = t.Price.Decimal.Mul(hundred), true
		case "no":
			no, noOK = t.Price.Decimal.Mul(hundred), true
		}
	}
	return yes, no, yesOK && noOK
}
