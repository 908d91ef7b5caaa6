package wallet

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestNewAccountFromHex(t *testing.T) {
	acct, err := NewAccountFromHex(testKeyHex)
	if err != nil {
		t.Fatalf("NewAccountFromHex: %v", err)
	}

	want := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	if acct.Address != want {
		t.Errorf("address = %s, want %s", acct.Address.Hex(), want.Hex())
	}
}

func TestNewAccountFromHexRejectsGarbage(t *testing.T) {
	if _, err := NewAccountFromHex("not-a-key"); err == nil {
		t.Error("expected error for malformed key")
	}
}

func TestSignTxRecoversToAccount(t *testing.T) {
	acct, err := NewAccountFromHex(testKeyHex)
	if err != nil {
		t.Fatalf("NewAccountFromHex: %v", err)
	}

	chainID := big.NewInt(31337)
	to := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    0,
		GasPrice: big.NewInt(1_000_000_000),
		Gas:      300000,
		To:       &to,
		Value:    big.NewInt(10_000_000_000_000_000),
	})

	signed, err := acct.SignTx(tx, chainID)
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}

	from, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(chainID), signed)
	if err != nil {
		t.Fatalf("Sender: %v", err)
	}
	if from != acct.Address {
		t.Errorf("recovered sender = %s, want %s", from.Hex(), acct.Address.Hex())
	}
}

func TestSessionEqual(t *testing.T) {
	acct := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	other := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	tests := []struct {
		name string
		a, b Session
		want bool
	}{
		{
			name: "both empty",
			want: true,
		},
		{
			name: "same account same chain",
			a:    Session{Account: acct, HasAccount: true, ChainID: big.NewInt(1)},
			b:    Session{Account: acct, HasAccount: true, ChainID: big.NewInt(1)},
			want: true,
		},
		{
			name: "different chain",
			a:    Session{Account: acct, HasAccount: true, ChainID: big.NewInt(1)},
			b:    Session{Account: acct, HasAccount: true, ChainID: big.NewInt(5)},
			want: false,
		},
		{
			name: "different account",
			a:    Session{Account: acct, HasAccount: true, ChainID: big.NewInt(1)},
			b:    Session{Account: other, HasAccount: true, ChainID: big.NewInt(1)},
			want: false,
		},
		{
			name: "chain lost",
			a:    Session{Account: acct, HasAccount: true, ChainID: big.NewInt(1)},
			b:    Session{Account: acct, HasAccount: true},
			want: false,
		},
		{
			name: "account lost",
			a:    Session{Account: acct, HasAccount: true, ChainID: big.NewInt(1)},
			b:    Session{ChainID: big.NewInt(1)},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}
