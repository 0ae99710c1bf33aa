package lnwire

import (
	"github.com/btcsuite/btcd/btcutil"
)

// MilliSatoshi represents a thousandth of a satoshi, the smallest unit
// addressable in HTLC and channel-balance amounts.
type MilliSatoshi uint64

// MSatPerSatoshi is the number of milli-satoshis in a single satoshi.
const MSatPerSatoshi = 1000

// ToSatoshis rounds down to the nearest whole satoshi.
func (m MilliSatoshi) ToSatoshis() btcutil.Amount {
	return btcutil.Amount(uint64(m) / MSatPerSatoshi)
}

// NewMSatFromSatoshis converts a whole-satoshi amount into milli-satoshis.
func NewMSatFromSatoshis(sat btcutil.Amount) MilliSatoshi {
	return MilliSatoshi(uint64(sat) * MSatPerSatoshi)
}
