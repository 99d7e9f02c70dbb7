package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortfolioPick_DedupeKey(t *testing.T) {
	tests := []struct {
		name     string
		pick     PortfolioPick
		expected string
	}{
		{name: "ticker wins", pick: PortfolioPick{Ticker: "aapl", CUSIP: "037833100"}, expected: "AAPL"},
		{name: "cusip when no ticker", pick: PortfolioPick{CUSIP: "g0176j109"}, expected: "G0176J109"},
		{name: "both empty", pick: PortfolioPick{}, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.pick.DedupeKey())
		})
	}
}
