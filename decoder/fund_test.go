package decoder

import (
	"testing"

	"github.com/b-open-io/1sat-wallet-toolbox/outpoint"
	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

func p2pkhScript(pkh []byte) []byte {
	b := []byte{0x76, 0xa9, byte(len(pkh))}
	b = append(b, pkh...)
	b = append(b, 0x88, 0xac)
	return b
}

func sampleOutpoint(t *testing.T) outpoint.Outpoint {
	op, err := outpoint.FromString("aa00000000000000000000000000000000000000000000000000000000000000_0")
	if err != nil {
		t.Fatal(err)
	}
	return op
}

func txoTestFixture(t *testing.T, lockingScript []byte, satoshis uint64) *txo.Txo {
	return txo.NewTxo(sampleOutpoint(t), lockingScript, satoshis)
}

func TestFundParseMatchesP2PKH(t *testing.T) {
	pkh := make([]byte, 20)
	for i := range pkh {
		pkh[i] = byte(i + 1)
	}
	tx := txo.NewTxo(sampleOutpoint(t), p2pkhScript(pkh), 5000)

	res := Fund{}.Parse(tx)
	if res == nil {
		t.Fatal("expected a match")
	}
	if res.Basket == nil || *res.Basket != "fund" {
		t.Fatalf("Basket = %v, want fund", res.Basket)
	}
	if res.Owner == nil {
		t.Fatal("expected owner to be set")
	}
	fd, ok := res.Data.(*FundData)
	if !ok {
		t.Fatalf("Data type = %T, want *FundData", res.Data)
	}
	if string(fd.PubKeyHash) != string(pkh) {
		t.Fatal("PubKeyHash mismatch")
	}
}

func TestFundParseRejectsOneSat(t *testing.T) {
	pkh := make([]byte, 20)
	tx := txo.NewTxo(sampleOutpoint(t), p2pkhScript(pkh), 1)
	if res := (Fund{}).Parse(tx); res != nil {
		t.Fatal("expected no match for a 1-satoshi output")
	}
}

func TestFundParseRejectsNonP2PKH(t *testing.T) {
	tx := txo.NewTxo(sampleOutpoint(t), []byte{0x6a, 0x01, 0x02}, 5000)
	if res := (Fund{}).Parse(tx); res != nil {
		t.Fatal("expected no match for a non-P2PKH script")
	}
}
