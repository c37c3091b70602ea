package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := map[string]Symbol{
		"eth/usdt":      {Base: "ETH", Quote: "USDT"},
		"ETH-USDT":      {Base: "ETH", Quote: "USDT"},
		" btc_usdc ":    {Base: "BTC", Quote: "USDC"},
		"SOLUSDT":       {Base: "SOL", Quote: "USDT"},
		"ETH/USDT:USDT": {Base: "ETH", Quote: "USDT"},
		"ETHBTC":        {Base: "ETH", Quote: "BTC"},
		"USDT":          {},
		"/usdt":         {},
		"":              {},
	}
	for in, want := range cases {
		assert.Equal(t, want, Parse(in), in)
	}
}

func TestCompact(t *testing.T) {
	assert.Equal(t, "ETHUSDT", Compact(" eth/usdt "))
	assert.Equal(t, "BTCUSDT", Compact("btc-usdt"))
	assert.Equal(t, "ETH/USDT", Parse("ethusdt").String())
	// Unsplittable names keep their letters.
	assert.Equal(t, "XYZ", Compact("x-y z"))
}
