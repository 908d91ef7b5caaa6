package chain

import (
	"math/big"
	"testing"
)

func TestDeriveHandle(t *testing.T) {
	const factory = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

	tests := []struct {
		name    string
		factory string
		chainID *big.Int
		wantOK  bool
	}{
		{
			name:    "both present",
			factory: factory,
			chainID: big.NewInt(1),
			wantOK:  true,
		},
		{
			name:    "missing factory",
			factory: "",
			chainID: big.NewInt(1),
			wantOK:  false,
		},
		{
			name:    "missing chain",
			factory: factory,
			chainID: nil,
			wantOK:  false,
		},
		{
			name:    "malformed address",
			factory: "not-an-address",
			chainID: big.NewInt(1),
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := DeriveHandle(tt.factory, tt.chainID)
			if ok != tt.wantOK {
				t.Fatalf("DeriveHandle ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && h.ChainID.Cmp(tt.chainID) != 0 {
				t.Errorf("chain id = %s, want %s", h.ChainID, tt.chainID)
			}
		})
	}
}

func TestHandleKeyIdentity(t *testing.T) {
	const factory = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

	a, _ := DeriveHandle(factory, big.NewInt(1))
	b, _ := DeriveHandle(factory, big.NewInt(1))
	c, _ := DeriveHandle(factory, big.NewInt(5))

	if a.Key() != b.Key() {
		t.Errorf("same inputs produced different keys: %s vs %s", a.Key(), b.Key())
	}
	if a.Key() == c.Key() {
		t.Errorf("different chains produced the same key: %s", a.Key())
	}
}

func TestDeriveHandleCopiesChainID(t *testing.T) {
	const factory = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

	id := big.NewInt(1)
	h, _ := DeriveHandle(factory, id)
	id.SetInt64(99)

	if h.ChainID.Int64() != 1 {
		t.Errorf("handle chain id aliased its input: %s", h.ChainID)
	}
}
