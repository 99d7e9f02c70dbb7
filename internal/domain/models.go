// Package domain provides the core 13F domain models and error types.
package domain

import "time"

// FormType13FHoldings is the form code prefix for quarterly holdings reports.
// It matches both the original report ("13F-HR") and its amendment ("13F-HR/A").
const FormType13FHoldings = "13F-HR"

// FilingReference identifies one 13F filing of an issuer.
type FilingReference struct {
	Form        string `json:"form"`
	CIK         string `json:"cik"`         // 10-digit, zero padded
	CIKNoLead   string `json:"cikNoLead"`   // leading zeros stripped, used in archive paths
	Accession   string `json:"accession"`   // dash separated, as published
	AccessionNo string `json:"accessionNo"` // digits only
	ReportDate  string `json:"reportDate"`  // YYYY-MM-DD
	FilingDate  string `json:"filingDate"`  // YYYY-MM-DD
}

// Holding is one normalized row of a 13F information table.
// Value is in thousands of dollars per filing convention.
type Holding struct {
	NameOfIssuer string  `json:"nameOfIssuer"`
	ClassTitle   string  `json:"classTitle,omitempty"`
	CUSIP        string  `json:"cusip"`
	Value        float64 `json:"value"`
	Shares       int64   `json:"shares"`
	PutCall      string  `json:"putCall,omitempty"`
	Ticker       string  `json:"ticker,omitempty"`
}

// PortfolioPick is the largest holding of one manager, joined with manager identity.
type PortfolioPick struct {
	Manager     string  `json:"manager"`
	ManagerSlug string  `json:"managerSlug"`
	CIK         string  `json:"cik"`
	ReportDate  string  `json:"reportDate"`
	Accession   string  `json:"accession"`
	CUSIP       string  `json:"cusip"`
	Name        string  `json:"name"`
	ValueK      float64 `json:"valueK"`
	Shares      int64   `json:"shares"`
	Ticker      string  `json:"ticker,omitempty"`
}

// DedupeKey returns the key used to collapse picks of the same security.
func (p PortfolioPick) DedupeKey() string {
	if p.Ticker != "" {
		return upper(p.Ticker)
	}
	return upper(p.CUSIP)
}

// PortfolioResponse is the equal-weighted model portfolio.
type PortfolioResponse struct {
	UpdatedAt         time.Time       `json:"updatedAt"`
	Count             int             `json:"count"`
	WeightPerPosition float64         `json:"weightPerPosition"`
	SuccessRate       float64         `json:"successRate"`
	Picks             []PortfolioPick `json:"picks"`
}

// HoldingsSummary aggregates a manager's full holdings list.
type HoldingsSummary struct {
	Positions          int     `json:"positions"`
	TotalValueK        float64 `json:"totalValueK"`
	LargestWeight      float64 `json:"largestWeight"`
	TopTenWeight       float64 `json:"topTenWeight"`
	HerfindahlIndex    float64 `json:"herfindahlIndex"`
	ResolvedTickerRate float64 `json:"resolvedTickerRate"`
}

// ManagerHoldingsResponse is the single-manager detail view.
type ManagerHoldingsResponse struct {
	CIK        string          `json:"cik"`
	Manager    string          `json:"manager,omitempty"`
	ReportDate string          `json:"reportDate"`
	FilingDate string          `json:"filingDate"`
	Accession  string          `json:"accession"`
	InfoURL    string          `json:"infoUrl"`
	Holdings   []Holding       `json:"holdings"`
	Summary    HoldingsSummary `json:"summary"`
}
