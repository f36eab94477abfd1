package ucrypto

import (
	"encoding/json"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestHashJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Hash
		out  string
	}{
		{
			"converts hex values",
			[]byte{0xde, 0xad, 0xbe, 0xef},
			"\"deadbeef\"",
		},
		{
			"handles empty hashes",
			[]byte{},
			"null",
		},
		{
			"handles nil hashes",
			nil,
			"null",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := json.Marshal(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.out, string(j))
			var h Hash
			require.NoError(t, json.Unmarshal(j, &h))
			if len(tt.in) == 0 {
				require.Nil(t, h)
			} else {
				require.EqualValues(t, tt.in, h)
			}
		})
	}
}

func TestStealthRoundTrip(t *testing.T) {
	viewPriv := NewPrivateKey()
	spendPriv := NewPrivateKey()

	for _, idx := range []uint64{0, 1, 7} {
		spendPub, err := SubaddressSpendPublic(viewPriv, spendPriv.PublicKey(), idx)
		require.NoError(t, err)
		require.Equal(t, SubaddressSpendPrivate(viewPriv, spendPriv, idx).PublicKey(), spendPub)
		viewPub, err := SubaddressViewPublic(viewPriv, spendPub)
		require.NoError(t, err)

		r := NewPrivateKey()
		outPub, err := SharedSecret(r, spendPub)
		require.NoError(t, err)
		senderSS, err := SharedSecret(r, viewPub)
		require.NoError(t, err)
		target, err := OnetimePublicKey(senderSS, spendPub)
		require.NoError(t, err)

		recvSS, err := SharedSecret(viewPriv, outPub)
		require.NoError(t, err)
		require.Equal(t, senderSS, recvSS)

		recovered, err := RecoverSpendPublicKey(recvSS, target)
		require.NoError(t, err)
		require.Equal(t, spendPub, recovered)

		x := OnetimePrivateKey(recvSS, SubaddressSpendPrivate(viewPriv, spendPriv, idx))
		require.Equal(t, target, x.PublicKey())
	}
}

func TestRecoverWithWrongSecret(t *testing.T) {
	spend := NewPrivateKey().PublicKey()
	ss := NewPrivateKey().PublicKey()
	target, err := OnetimePublicKey(ss, spend)
	require.NoError(t, err)

	recovered, err := RecoverSpendPublicKey(NewPrivateKey().PublicKey(), target)
	require.NoError(t, err)
	require.NotEqual(t, spend, recovered)
}

func TestKeyImageDeterministic(t *testing.T) {
	x := NewPrivateKey()
	require.Equal(t, ComputeKeyImage(x), ComputeKeyImage(x))
	require.NotEqual(t, ComputeKeyImage(x), ComputeKeyImage(NewPrivateKey()))
}

func TestMaskedAmount(t *testing.T) {
	ss := NewPrivateKey().PublicKey()
	tests := []uint64{0, 1, 10_000, 100_000_000, ^uint64(0)}
	for _, v := range tests {
		m := NewMaskedAmount(v, ss)
		out, err := m.Unmask(ss)
		require.NoError(t, err)
		require.Equal(t, v, out)

		_, err = m.Unmask(NewPrivateKey().PublicKey())
		require.ErrorIs(t, err, ErrAmountMismatch)
	}

	m := NewMaskedAmount(42, ss)
	j, err := json.Marshal(m)
	require.NoError(t, err)
	var dec MaskedAmount
	require.NoError(t, json.Unmarshal(j, &dec))
	require.Equal(t, m, dec)
}

func TestMemoCipher(t *testing.T) {
	ss := NewPrivateKey().PublicKey()
	var payload [MemoSize]byte
	payload[0] = 0x01
	copy(payload[2:], "hello")

	ct := EncryptMemo(payload, ss)
	require.NotEqual(t, payload, ct)
	require.Equal(t, payload, DecryptMemo(ct, ss))
	require.NotEqual(t, payload, DecryptMemo(ct, NewPrivateKey().PublicKey()))
}

func TestMemoMAC(t *testing.T) {
	k1 := NewPrivateKey().PublicKey()
	k2 := NewPrivateKey().PublicKey()
	require.Equal(t, MemoMAC(k1, []byte("a"), []byte("b")), MemoMAC(k1, []byte("ab")))
	require.NotEqual(t, MemoMAC(k1, []byte("ab")), MemoMAC(k2, []byte("ab")))
}

func TestSignVerify(t *testing.T) {
	x := NewPrivateKey()
	msg := []byte("prefix hash")
	sig, ki := Sign(msg, x)
	require.Equal(t, ComputeKeyImage(x), ki)
	require.True(t, Verify(msg, x.PublicKey(), ki, sig))

	t.Run("rejects a different message", func(t *testing.T) {
		require.False(t, Verify([]byte("other"), x.PublicKey(), ki, sig))
	})
	t.Run("rejects a different key", func(t *testing.T) {
		require.False(t, Verify(msg, NewPrivateKey().PublicKey(), ki, sig))
	})
	t.Run("rejects a forged key image", func(t *testing.T) {
		require.False(t, Verify(msg, x.PublicKey(), ComputeKeyImage(NewPrivateKey()), sig))
	})
	t.Run("rejects a tampered signature", func(t *testing.T) {
		bad := sig
		bad[40] ^= 0x01
		require.False(t, Verify(msg, x.PublicKey(), ki, bad))
	})
}

func TestKeyJSON(t *testing.T) {
	priv := NewPrivateKey()
	pub := priv.PublicKey()

	j, err := json.Marshal(pub)
	require.NoError(t, err)
	var decPub PublicKey
	require.NoError(t, json.Unmarshal(j, &decPub))
	require.Equal(t, pub, decPub)

	j, err = json.Marshal(priv)
	require.NoError(t, err)
	var decPriv PrivateKey
	require.NoError(t, json.Unmarshal(j, &decPriv))
	require.Equal(t, priv, decPriv)

	_, err = PrivateKeyFromBytes(make([]byte, 31))
	require.ErrorIs(t, err, ErrInvalidScalar)
	bad := make([]byte, 32)
	for i := range bad {
		bad[i] = 0xff
	}
	_, err = PrivateKeyFromBytes(bad)
	require.ErrorIs(t, err, ErrInvalidScalar)
}
