// Package chain wraps the factory contract on the currently active chain.
package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Handle identifies the factory contract on one specific chain.
// It is a pure derived value: same (chainID, factory) means same handle.
type Handle struct {
	ChainID *big.Int
	Factory common.Address
}

// Key returns the handle's identity string, used to detect handle changes
// and to tag snapshots with the handle they were fetched against.
func (h Handle) Key() string {
	return h.ChainID.String() + ":" + h.Factory.Hex()
}

// DeriveHandle derives a contract handle from the configured factory address
// and the session's chain. No side effects and no network calls. Returns
// false if either input is missing or the address does not parse. Account
// identity is deliberately not an input: an account change alone never
// rebuilds the handle.
func DeriveHandle(factoryAddr string, chainID *big.Int) (Handle, bool) {
	if factoryAddr == "" || chainID == nil {
		return Handle{}, false
	}
	if !common.IsHexAddress(factoryAddr) {
		return Handle{}, false
	}
	return Handle{
		ChainID: new(big.Int).Set(chainID),
		Factory: common.HexToAddress(factoryAddr),
	}, true
}
