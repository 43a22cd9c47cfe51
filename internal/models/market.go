package models

import "time"

// CompanyProfile is the Finnhub /stock/profile2 record.
type CompanyProfile struct {
	Ticker               string  `json:"ticker"`
	Name                 string  `json:"name"`
	Exchange             string  `json:"exchange"`
	Logo                 string  `json:"logo"`
	IPO                  string  `json:"ipo"`
	Industry             string  `json:"finnhubIndustry"`
	Country              string  `json:"country"`
	Currency             string  `json:"currency"`
	WebURL               string  `json:"weburl"`
	MarketCapitalization float64 `json:"marketCapitalization"`
	Phone                string  `json:"phone,omitempty"`
	ShareOutstanding     float64 `json:"shareOutstanding,omitempty"`
}

// Valid reports whether the upstream actually knew the symbol.
// Finnhub answers unknown tickers with an empty object.
func (p *CompanyProfile) Valid() bool {
	return p != nil && p.Ticker != ""
}

// Quote is the Finnhub /quote record.
type Quote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	PercentChange float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"` // unix seconds
}

// Valid reports whether the quote carries a price.
func (q *Quote) Valid() bool {
	return q != nil && q.Current != 0
}

// Time returns the quote timestamp, or the zero time when absent.
func (q *Quote) Time() time.Time {
	if q == nil || q.Timestamp == 0 {
		return time.Time{}
	}
	return time.Unix(q.Timestamp, 0).UTC()
}
