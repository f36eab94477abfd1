package ucrypto

import (
	"golang.org/x/crypto/blake2b"
)

const (
	MemoSize = 66
	MACSize  = 16

	domainMemo = "umbra_memo"
)

// EncryptMemo XORs a memo payload with a keystream bound to the output's
// shared secret. DecryptMemo is the same operation.
func EncryptMemo(payload [MemoSize]byte, sharedSecret PublicKey) [MemoSize]byte {
	xof, err := blake2b.NewXOF(MemoSize, sharedSecret[:])
	if err != nil {
		panic(err)
	}
	xof.Write([]byte(domainMemo))
	var stream [MemoSize]byte
	if _, err := xof.Read(stream[:]); err != nil {
		panic(err)
	}
	var out [MemoSize]byte
	for i := range payload {
		out[i] = payload[i] ^ stream[i]
	}
	return out
}

func DecryptMemo(ciphertext [MemoSize]byte, sharedSecret PublicKey) [MemoSize]byte {
	return EncryptMemo(ciphertext, sharedSecret)
}

// MemoMAC is a keyed blake2b-256 truncated to MACSize bytes.
func MemoMAC(key PublicKey, data ...[]byte) [MACSize]byte {
	h, err := blake2b.New256(key[:])
	if err != nil {
		panic(err)
	}
	for _, d := range data {
		h.Write(d)
	}
	var out [MACSize]byte
	copy(out[:], h.Sum(nil))
	return out
}
