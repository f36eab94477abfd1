package chain

import (
	"encoding/json"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
	"strconv"
	"strings"
)

type Derivation []uint32

// AccountDerivation is m/44'/coin'/index', the hardened root from which an
// account's view and spend keys are hashed.
func AccountDerivation(network *Network, index uint32) Derivation {
	return Derivation{
		HardenNode(CoinPurpose),
		HardenNode(network.CoinType),
		HardenNode(index),
	}
}

func (d Derivation) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return json.Marshal(nil)
	}

	return json.Marshal(d.String())
}

func (d *Derivation) UnmarshalJSON(b []byte) error {
	var data string
	if err := json.Unmarshal(b, &data); err != nil {
		return err
	}

	if data == "" {
		return nil
	}

	newDeriv, err := ParseDerivation(data)
	if err != nil {
		return err
	}
	*d = newDeriv
	return nil
}

func (d Derivation) String() string {
	nodes := make([]string, len(d)+1)
	nodes[0] = "m"
	for i, der := range d {
		if IsHardenedNode(der) {
			nodes[i+1] = strconv.FormatUint(uint64(der-bip32.FirstHardenedChild), 10)
			nodes[i+1] += "'"
		} else {
			nodes[i+1] = strconv.FormatUint(uint64(der), 10)
		}
	}
	return strings.Join(nodes, "/")
}

func ParseDerivation(in string) (Derivation, error) {
	nodes := strings.Split(in, "/")
	deriv := make(Derivation, len(nodes)-1)

	if nodes[0] != "m" {
		return nil, errors.New("path must start with m/")
	}

	if len(nodes) < 2 {
		return nil, errors.New("path must contain at least one component")
	}

	for i := 1; i < len(nodes); i++ {
		nodeStr := nodes[i]
		trimmed := strings.TrimSuffix(nodeStr, "'")
		node, err := strconv.ParseUint(trimmed, 10, 31)
		if err != nil {
			return nil, errors.Wrap(err, "invalid path node")
		}

		if strings.HasSuffix(nodeStr, "'") {
			deriv[i-1] = HardenNode(uint32(node))
		} else {
			deriv[i-1] = uint32(node)
		}
	}

	return deriv, nil
}

func IsHardenedNode(i uint32) bool {
	return i >= bip32.FirstHardenedChild
}

func HardenNode(i uint32) uint32 {
	return i + bip32.FirstHardenedChild
}

// Derive walks the path from a BIP32 master key built from seed.
func (d Derivation) Derive(seed []byte) (*bip32.Key, error) {
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errors.Wrap(err, "error creating master key")
	}
	for _, child := range d {
		key, err = key.NewChildKey(child)
		if err != nil {
			return nil, errors.Wrap(err, "error deriving child key")
		}
	}
	return key, nil
}
