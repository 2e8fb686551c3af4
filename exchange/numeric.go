package exchange

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// DivisionScale is the number of fractional digits kept by non-terminating divisions.
const DivisionScale = 36

const ZeroAddress = "0x0000000000000000000000000000000000000000"

var (
	zeroBD = decimal.Zero
	oneBD  = decimal.NewFromInt(1)
	twoBD  = decimal.NewFromInt(2)

	// a derived swap leg at or below this counts as absent
	almostZeroBD = decimal.New(1, -6)
)

// ConvertTokenToDecimal scales a raw token amount down by 10^decimals. The result is exact.
func ConvertTokenToDecimal(amount *big.Int, decimals int64) decimal.Decimal {
	if amount == nil {
		return zeroBD
	}
	a := decimal.NewFromBigInt(amount, 0)
	if decimals == 0 {
		return a
	}
	return a.DivRound(ExponentToBigDecimal(decimals), int32(decimals))
}

func ExponentToBigDecimal(decimals int64) decimal.Decimal {
	return decimal.New(1, int32(decimals))
}

// safeDiv returns 0 when dividing by zero.
func safeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return zeroBD
	}
	return a.DivRound(b, DivisionScale)
}
