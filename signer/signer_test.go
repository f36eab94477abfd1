package signer

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/kurumiimari/umbra/wallet"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
)

func setupKeystore(t *testing.T) (*Keystore, *chain.AccountKey, string) {
	mnemonic := chain.GenerateMnemonic()
	path := filepath.Join(t.TempDir(), "keystore.json")
	ks, err := CreateKeystore(path, chain.NetworkRegtest, mnemonic, "password")
	require.NoError(t, err)
	key, err := chain.AccountKeyFromMnemonic(chain.NetworkRegtest, mnemonic, 0)
	require.NoError(t, err)
	return ks, key, path
}

func TestSecretBox(t *testing.T) {
	box, err := EncryptDefault([]byte("secret"), "password")
	require.NoError(t, err)

	pt, err := box.Decrypt("password")
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), pt)

	_, err = box.Decrypt("wrong")
	require.ErrorIs(t, err, ErrInvalidPassword)
}

func TestKeystore(t *testing.T) {
	ks, key, path := setupKeystore(t)
	require.Equal(t, key.ID(), ks.AccountID())
	require.True(t, ks.IsLocked())

	t.Run("refuses to overwrite", func(t *testing.T) {
		_, err := CreateKeystore(path, chain.NetworkRegtest, chain.GenerateMnemonic(), "password")
		require.Error(t, err)
	})

	t.Run("unlocks after reopening", func(t *testing.T) {
		reopened, err := OpenKeystore(path, chain.NetworkRegtest)
		require.NoError(t, err)
		_, err = reopened.AccountKey()
		require.ErrorIs(t, err, ErrLocked)

		require.ErrorIs(t, reopened.Unlock("wrong"), ErrInvalidPassword)
		require.NoError(t, reopened.Unlock("password"))
		got, err := reopened.AccountKey()
		require.NoError(t, err)
		require.Equal(t, key.Bytes(), got.Bytes())

		reopened.Lock()
		require.True(t, reopened.IsLocked())
	})

	t.Run("rejects another network", func(t *testing.T) {
		_, err := OpenKeystore(path, chain.NetworkMain)
		require.Error(t, err)
	})
}

func TestSigner(t *testing.T) {
	ks, key, _ := setupKeystore(t)
	s := NewSigner(chain.NetworkRegtest, ks)

	_, err := s.ViewOnlyAccountKey()
	require.ErrorIs(t, err, ErrLocked)
	require.NoError(t, ks.Unlock("password"))

	view, err := s.ViewOnlyAccountKey()
	require.NoError(t, err)
	require.Equal(t, key.ID(), view.ID())

	const subIdx uint64 = 3
	out, err := chain.NewTxOut(5000, key.Subaddress(subIdx), ucrypto.NewPrivateKey(), nil)
	require.NoError(t, err)

	t.Run("signs owned inputs", func(t *testing.T) {
		tx := &chain.Tx{
			Inputs: []*chain.TxIn{{
				TargetKey: out.TargetKey,
				PublicKey: out.PublicKey,
			}},
			Outputs:        []*chain.TxOut{out},
			Fee:            10_000,
			TombstoneBlock: 20,
		}
		signed, err := s.SignTransaction(&wallet.UnsignedTransaction{
			AccountID: key.ID(),
			Tx:        tx,
			Inputs: []*wallet.UnsignedInput{{
				TxoID:           out.ID(),
				TargetKey:       out.TargetKey,
				PublicKey:       out.PublicKey,
				SubaddressIndex: subIdx,
				Value:           5000,
			}},
		})
		require.NoError(t, err)
		require.True(t, signed.IsSigned())
		require.True(t, signed.VerifySignatures())
	})

	t.Run("refuses inputs it does not own", func(t *testing.T) {
		tx := &chain.Tx{
			Inputs: []*chain.TxIn{{
				TargetKey: out.TargetKey,
				PublicKey: out.PublicKey,
			}},
		}
		_, err := s.SignTransaction(&wallet.UnsignedTransaction{
			AccountID: key.ID(),
			Tx:        tx,
			Inputs: []*wallet.UnsignedInput{{
				TargetKey:       out.TargetKey,
				PublicKey:       out.PublicKey,
				SubaddressIndex: subIdx + 1,
			}},
		})
		require.Error(t, err)
	})

	t.Run("refuses other accounts", func(t *testing.T) {
		_, err := s.SyncTxos(&wallet.SyncRequest{AccountID: "other"})
		require.Error(t, err)
	})

	t.Run("computes key images", func(t *testing.T) {
		res, err := s.SyncTxos(&wallet.SyncRequest{
			AccountID: key.ID(),
			Txos: []*wallet.SyncTxo{{
				TxoID:           out.ID(),
				TargetKey:       out.TargetKey,
				PublicKey:       out.PublicKey,
				SubaddressIndex: subIdx,
			}},
		})
		require.NoError(t, err)
		require.Len(t, res.KeyImages, 1)
		ss, err := key.SharedSecret(out.PublicKey)
		require.NoError(t, err)
		require.Equal(t, key.KeyImage(ss, subIdx), res.KeyImages[0].KeyImage)
	})

	t.Run("generates subaddresses", func(t *testing.T) {
		res, err := s.GenerateSubaddresses(&wallet.SubaddressesRequest{
			AccountID:           key.ID(),
			NextSubaddressIndex: 2,
			Count:               3,
		})
		require.NoError(t, err)
		require.EqualValues(t, 5, res.NextSubaddressIndex)
		require.Len(t, res.Subaddresses, 3)
		for i, sub := range res.Subaddresses {
			require.EqualValues(t, 2+i, sub.Index)
			require.Equal(t, key.Subaddress(sub.Index).SpendPublicKey, sub.SpendPublicKey)
		}
	})
}
