package wallet

import (
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestKeyImageBloom(t *testing.T) {
	filter := NewKeyImageBloom()
	var kis []ucrypto.KeyImage
	for i := 0; i < 10; i++ {
		ki := ucrypto.ComputeKeyImage(ucrypto.NewPrivateKey())
		filter.Add(ki)
		kis = append(kis, ki)
	}
	for _, ki := range kis {
		require.True(t, filter.Test(ki))
	}
	require.False(t, filter.Test(ucrypto.ComputeKeyImage(ucrypto.NewPrivateKey())))

	t.Run("round trips through bytes", func(t *testing.T) {
		dec, err := NewKeyImageBloomFromBytes(filter.Bytes())
		require.NoError(t, err)
		for _, ki := range kis {
			require.True(t, dec.Test(ki))
		}
	})

	t.Run("copies are independent", func(t *testing.T) {
		cp := filter.Copy()
		ki := ucrypto.ComputeKeyImage(ucrypto.NewPrivateKey())
		cp.Add(ki)
		require.True(t, cp.Test(ki))
		require.False(t, filter.Test(ki))
	})

	t.Run("empty bytes yield an empty filter", func(t *testing.T) {
		dec, err := NewKeyImageBloomFromBytes(nil)
		require.NoError(t, err)
		require.False(t, dec.Test(kis[0]))
	})
}
