package ucrypto

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

const HashSize = 32

// Hash is a 32-byte digest. Block identifiers and transaction prefixes are
// hashes; an empty Hash marshals to null.
type Hash []byte

func (h Hash) String() string {
	return hex.EncodeToString(h)
}

func (h Hash) MarshalJSON() ([]byte, error) {
	if len(h) == 0 {
		return json.Marshal(nil)
	}
	return json.Marshal(h.String())
}

func (h *Hash) UnmarshalJSON(b []byte) error {
	var hexStr *string
	if err := json.Unmarshal(b, &hexStr); err != nil {
		return errors.WithStack(err)
	}
	if hexStr == nil {
		*h = nil
		return nil
	}
	buf, err := hex.DecodeString(*hexStr)
	if err != nil {
		return errors.WithStack(err)
	}
	*h = buf
	return nil
}

func (h Hash) Equal(other Hash) bool {
	return bytes.Equal(h, other)
}

func Blake256(in ...[]byte) Hash {
	h, _ := blake2b.New256(nil)
	for _, b := range in {
		h.Write(b)
	}
	return h.Sum(nil)
}

// DomainHash256 hashes data under a protocol domain separator.
func DomainHash256(domain string, in ...[]byte) Hash {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(domain))
	for _, b := range in {
		h.Write(b)
	}
	return h.Sum(nil)
}
