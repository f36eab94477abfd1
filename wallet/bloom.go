package wallet

import (
	"bytes"
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/pkg/errors"
	"sync"
)

// https://hur.st/bloomfilter/?n=100000&p=1.0E-6&m=&k=

const (
	KeyImageBloomM = 2875518
	KeyImageBloomK = 20
)

// KeyImageBloom holds the key images of an account's owned TXOs so that
// spend detection can skip blocks without touching the database.
type KeyImageBloom struct {
	filter *bloom.BloomFilter
	mtx    sync.RWMutex
}

func NewKeyImageBloom() *KeyImageBloom {
	return &KeyImageBloom{
		filter: bloom.New(KeyImageBloomM, KeyImageBloomK),
	}
}

// NewKeyImageBloomFromBytes decodes a serialized filter. An empty input
// yields an empty filter.
func NewKeyImageBloomFromBytes(b []byte) (*KeyImageBloom, error) {
	if len(b) == 0 {
		return NewKeyImageBloom(), nil
	}
	filter := new(bloom.BloomFilter)
	if _, err := filter.ReadFrom(bytes.NewReader(b)); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling bloom filter")
	}
	return &KeyImageBloom{
		filter: filter,
	}, nil
}

func (k *KeyImageBloom) Add(ki ucrypto.KeyImage) {
	k.mtx.Lock()
	defer k.mtx.Unlock()
	k.filter.Add(ki[:])
}

func (k *KeyImageBloom) Test(ki ucrypto.KeyImage) bool {
	k.mtx.RLock()
	defer k.mtx.RUnlock()
	return k.filter.Test(ki[:])
}

func (k *KeyImageBloom) Bytes() []byte {
	k.mtx.RLock()
	defer k.mtx.RUnlock()
	buf := new(bytes.Buffer)
	if _, err := k.filter.WriteTo(buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func (k *KeyImageBloom) Copy() *KeyImageBloom {
	k.mtx.RLock()
	defer k.mtx.RUnlock()
	return &KeyImageBloom{filter: k.filter.Copy()}
}
