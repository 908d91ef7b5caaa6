// Package wallet provides the local signing account and the session watcher.
package wallet

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account holds the dashboard's signing key.
type Account struct {
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

// NewAccount creates an account from a private key.
func NewAccount(privateKey *ecdsa.PrivateKey) *Account {
	return &Account{
		PrivateKey: privateKey,
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}
}

// NewAccountFromHex creates an account from a hex-encoded private key.
func NewAccountFromHex(hexKey string) (*Account, error) {
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, err
	}
	return NewAccount(privateKey), nil
}

// SignTx signs a transaction for the given chain.
func (a *Account) SignTx(tx *gethtypes.Transaction, chainID *big.Int) (*gethtypes.Transaction, error) {
	signer := gethtypes.LatestSignerForChainID(chainID)
	return gethtypes.SignTx(tx, signer, a.PrivateKey)
}

// Session is the wallet state the sync core observes: the active account and
// the active chain, either of which may be absent. The core never mutates it.
type Session struct {
	Account    common.Address
	HasAccount bool
	ChainID    *big.Int // nil = no chain
}

// SameChain reports whether both sessions are on the same chain (including
// both having none).
func (s Session) SameChain(o Session) bool {
	if s.ChainID == nil || o.ChainID == nil {
		return s.ChainID == nil && o.ChainID == nil
	}
	return s.ChainID.Cmp(o.ChainID) == 0
}

// Equal reports whether two sessions are identical.
func (s Session) Equal(o Session) bool {
	if s.HasAccount != o.HasAccount {
		return false
	}
	if s.HasAccount && s.Account != o.Account {
		return false
	}
	return s.SameChain(o)
}
