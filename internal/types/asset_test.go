package types

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/tradestate/pkg/errors"
)

type AssetTestSuite struct {
	suite.Suite
}

func TestAssetSuite(t *testing.T) {
	suite.Run(t, new(AssetTestSuite))
}

func (suite *AssetTestSuite) TestParseAsset() {
	tests := []struct {
		name    string
		symbol  string
		want    Asset
		wantErr bool
	}{
		{
			name:   "slash separated",
			symbol: "ETH/BTC",
			want:   Asset{Base: ETH, Quote: BTC},
		},
		{
			name:   "six character code",
			symbol: "ETHBTC",
			want:   Asset{Base: ETH, Quote: BTC},
		},
		{
			name:   "four character quote",
			symbol: "ETH/USDT",
			want:   Asset{Base: ETH, Quote: USDT},
		},
		{
			name:    "separatorless and not six characters",
			symbol:  "ETHX",
			wantErr: true,
		},
		{
			name:    "missing quote",
			symbol:  "ETH/",
			wantErr: true,
		},
		{
			name:    "empty",
			symbol:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			asset, err := ParseAsset(tt.symbol)
			if tt.wantErr {
				suite.Error(err)
				suite.True(errors.HasCode(err, errors.ErrCodeParse))

				return
			}

			suite.NoError(err)
			suite.True(asset.Equal(tt.want))
		})
	}
}

func (suite *AssetTestSuite) TestSymbolRendering() {
	asset := NewAsset(ETH, BTC)

	suite.Equal("ETH/BTC", asset.Symbol())
	suite.Equal("BTC/ETH", asset.ReverseSymbol())
	suite.Equal("ETH_BTC", asset.ID())
	suite.Equal("ETH/BTC", asset.String())
}

func (suite *AssetTestSuite) TestReverse() {
	asset := NewAsset(ETH, BTC)
	reversed := asset.Reverse()

	suite.Equal(BTC, reversed.Base)
	suite.Equal(ETH, reversed.Quote)
	suite.True(asset.Equal(reversed.Reverse()))
}

func (suite *AssetTestSuite) TestParseRoundTrip() {
	asset := NewAsset(ETH, USDT)

	parsed, err := ParseAsset(asset.Symbol())
	suite.NoError(err)
	suite.True(asset.Equal(parsed))
}
