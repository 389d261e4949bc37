// Package common holds small, dependency-free helpers used by the decoder
// package: Base58Check address encoding that does not belong to any one
// protocol.
package common

import (
	"crypto/sha256"
	"math/big"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Base58CheckEncode encodes version||payload with a 4-byte double-SHA256
// checksum, the standard Bitcoin address encoding. go-sdk's address
// constructors build addresses from a public key, not from a bare pubkey
// hash — but every decoder here only ever has the hash pulled out of a
// locking script, so addresses are assembled directly here the way the
// teacher's PkhToAddress (contract/meta-contract/decoder/ft.go) does,
// without the dropped btcutil address type.
func Base58CheckEncode(version byte, payload []byte) string {
	buf := make([]byte, 0, 1+len(payload)+4)
	buf = append(buf, version)
	buf = append(buf, payload...)
	checksum := doubleSHA256(buf)
	buf = append(buf, checksum[:4]...)
	return base58Encode(buf)
}

func doubleSHA256(b []byte) []byte {
	h1 := sha256.Sum256(b)
	h2 := sha256.Sum256(h1[:])
	return h2[:]
}

func base58Encode(b []byte) string {
	zero := big.NewInt(0)
	base := big.NewInt(58)
	num := new(big.Int).SetBytes(b)
	mod := new(big.Int)

	var out []byte
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		out = append(out, base58Alphabet[mod.Int64()])
	}
	for _, c := range b {
		if c != 0 {
			break
		}
		out = append(out, base58Alphabet[0])
	}
	// reverse
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}
