/*

This file contains the pure pricing and APY formulas of a maturity market.
Prices are USD, APYs are percentages except the swap fee APY which is a
fraction. Every formula returns "0" when its horizon or denominator is not
positive so callers never see NaN or Inf.

*/

package analyzer

import (
	"math"

	"github.com/elys-network/yieldsplit/internal/types"
	"github.com/elys-network/yieldsplit/internal/utils"
)

const daysPerYear = 365.0

// CalculatePtPrice prices PT from the SY received per PT and the yield token price.
func CalculatePtPrice(syPerPt, coinPrice float64) float64 {
	if syPerPt <= 0 || coinPrice <= 0 {
		return 0
	}
	return syPerPt * coinPrice
}

// CalculateYtPriceInAsset is the YT price in underlying-asset terms: 1 - ptPrice/underlyingPrice.
func CalculateYtPriceInAsset(ptPrice, underlyingPrice float64) float64 {
	if underlyingPrice <= 0 {
		return 0
	}
	return 1 - ptPrice/underlyingPrice
}

// CalculateTvl values both reserves (display units) in USD.
func CalculateTvl(totalSy, totalPt, coinPrice, ptPrice float64) float64 {
	return totalSy*coinPrice + totalPt*ptPrice
}

// CalculatePtApy is the implied fixed APY of holding PT to maturity:
//
//	((underlyingPrice / ptPrice) ^ (365 / daysToExpiry) - 1) * 100
func CalculatePtApy(underlyingPrice, ptPrice, daysToExpiry float64) string {
	if daysToExpiry <= 0 || ptPrice <= 0 || underlyingPrice <= 0 {
		return "0"
	}
	return utils.FormatFloat((math.Pow(underlyingPrice/ptPrice, daysPerYear/daysToExpiry) - 1) * 100)
}

// CalculateYtApy is the leveraged yield of holding YT to maturity:
//
//	((((1 + underlyingApy) ^ years - 1) * feeRetention / ytPriceInAsset) ^ (1 / years) - 1) * 100
func CalculateYtApy(underlyingApy, yearsToExpiry, feeRetention, ytPriceInAsset float64) string {
	if yearsToExpiry <= 0 || ytPriceInAsset <= 0 {
		return "0"
	}
	accrued := (math.Pow(1+underlyingApy, yearsToExpiry) - 1) * feeRetention
	if accrued <= 0 {
		return "0"
	}
	return utils.FormatFloat((math.Pow(accrued/ytPriceInAsset, 1/yearsToExpiry) - 1) * 100)
}

// CalculateScaledApys weights the underlying APY (fraction, reported in percent)
// and the PT APY (percent) by each reserve's share of the pool.
func CalculateScaledApys(totalSy, totalPt, underlyingApy, ptApy float64) (scaledUnderlying, scaledPt string) {
	total := totalSy + totalPt
	if total <= 0 {
		return "0", "0"
	}
	return utils.FormatFloat(totalSy / total * underlyingApy * 100), utils.FormatFloat(totalPt / total * ptApy)
}

// CalculateSwapFeeApy compounds the fee accrual rate over a year:
//
//	((feeRate * coinPrice / tvl) + 1) ^ (365 / daysToExpiry) - 1
func CalculateSwapFeeApy(feeRate, coinPrice, tvl, daysToExpiry float64) string {
	if tvl <= 0 || daysToExpiry <= 0 {
		return "0"
	}
	return utils.FormatFloat(math.Pow(feeRate*coinPrice/tvl+1, daysPerYear/daysToExpiry) - 1)
}

// CalculateIncentiveApy annualises active reward emissions against tvl, in percent.
// prices maps reward coin types to USD prices; rewards without a price are skipped.
func CalculateIncentiveApy(rewards []types.RewardDescriptor, prices map[string]float64, secondsPerYear int64, tvl float64) string {
	if tvl <= 0 {
		return "0"
	}
	var yearly float64
	for _, r := range rewards {
		if !r.Active || r.EmissionPerSecond.IsNil() {
			continue
		}
		price, ok := prices[r.CoinType]
		if !ok || price <= 0 {
			continue
		}
		emission, err := utils.SDKIntToFloat64(r.EmissionPerSecond, r.Decimals)
		if err != nil {
			continue
		}
		yearly += emission * float64(secondsPerYear) * price
	}
	return utils.FormatFloat(yearly / tvl * 100)
}

// CalculatePoolApy sums the APY components; swapFeeApy is a fraction.
func CalculatePoolApy(scaledUnderlyingApy, scaledPtApy, incentiveApy, swapFeeApy string) string {
	return utils.FormatFloat(
		utils.ParseFloatOrZero(scaledUnderlyingApy) +
			utils.ParseFloatOrZero(scaledPtApy) +
			utils.ParseFloatOrZero(incentiveApy) +
			utils.ParseFloatOrZero(swapFeeApy)*100,
	)
}
