package chain

import (
	"github.com/pkg/errors"
	"time"
)

const (
	CoinPurpose = 44

	DefaultSubaddressIndex uint64 = 0
	ChangeSubaddressIndex  uint64 = 1
	ReservedSubaddresses   uint64 = 2
)

type Network struct {
	Name                    string
	WalletPort              int
	NodePort                int
	AddressVersion          byte
	GiftCodeVersion         byte
	CoinType                uint32
	MinimumFee              uint64
	DefaultTombstoneHorizon uint64
	MaxTombstoneHorizon     uint64
	MaxInputs               int
	MaxOutputs              int
	PollInterval            time.Duration
}

var NetworkMain = &Network{
	Name:                    "main",
	WalletPort:              9090,
	NodePort:                9091,
	AddressVersion:          0x5c,
	GiftCodeVersion:         0x5d,
	CoinType:                866,
	MinimumFee:              10_000,
	DefaultTombstoneHorizon: 50,
	MaxTombstoneHorizon:     100,
	MaxInputs:               16,
	MaxOutputs:              16,
	PollInterval:            5 * time.Second,
}

var NetworkTest = &Network{
	Name:                    "test",
	WalletPort:              19090,
	NodePort:                19091,
	AddressVersion:          0x6c,
	GiftCodeVersion:         0x6d,
	CoinType:                1,
	MinimumFee:              10_000,
	DefaultTombstoneHorizon: 50,
	MaxTombstoneHorizon:     100,
	MaxInputs:               16,
	MaxOutputs:              16,
	PollInterval:            5 * time.Second,
}

var NetworkRegtest = &Network{
	Name:                    "regtest",
	WalletPort:              29090,
	NodePort:                29091,
	AddressVersion:          0x7c,
	GiftCodeVersion:         0x7d,
	CoinType:                1,
	MinimumFee:              10_000,
	DefaultTombstoneHorizon: 10,
	MaxTombstoneHorizon:     100,
	MaxInputs:               16,
	MaxOutputs:              16,
	PollInterval:            100 * time.Millisecond,
}

func NetworkFromName(name string) (*Network, error) {
	switch name {
	case NetworkMain.Name:
		return NetworkMain, nil
	case NetworkTest.Name:
		return NetworkTest, nil
	case NetworkRegtest.Name:
		return NetworkRegtest, nil
	default:
		return nil, errors.New("invalid network")
	}
}

// Tombstone returns the tombstone block for a transaction built at height.
// A requested tombstone of zero selects the default horizon. The second
// return is false when the requested tombstone is out of range.
func (n *Network) Tombstone(height uint64, requested uint64) (uint64, bool) {
	if requested == 0 {
		return height + n.DefaultTombstoneHorizon, true
	}
	if requested <= height || requested > height+n.MaxTombstoneHorizon {
		return 0, false
	}
	return requested, true
}
