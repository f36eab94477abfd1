// Package signer holds spend keys away from the wallet daemon and answers
// its view-only delegation requests.
package signer

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/kurumiimari/umbra/wallet"
	"github.com/pkg/errors"
)

type Signer struct {
	network *chain.Network
	ks      *Keystore
}

func NewSigner(network *chain.Network, ks *Keystore) *Signer {
	return &Signer{
		network: network,
		ks:      ks,
	}
}

func (s *Signer) ViewOnlyAccountKey() (*chain.ViewAccountKey, error) {
	key, err := s.ks.AccountKey()
	if err != nil {
		return nil, err
	}
	return key.View(), nil
}

// SignTransaction signs every input of an unsigned transaction after
// checking that each one is an output this key owns.
func (s *Signer) SignTransaction(req *wallet.UnsignedTransaction) (*chain.Tx, error) {
	key, err := s.accountKey(req.AccountID)
	if err != nil {
		return nil, err
	}
	if req.Tx == nil || len(req.Tx.Inputs) != len(req.Inputs) {
		return nil, errors.New("inputs do not match transaction")
	}

	byTarget := make(map[ucrypto.PublicKey]*wallet.UnsignedInput)
	for _, in := range req.Inputs {
		byTarget[in.TargetKey] = in
	}

	msg := req.Tx.PrefixHash()
	for i, in := range req.Tx.Inputs {
		meta, ok := byTarget[in.TargetKey]
		if !ok || meta.PublicKey != in.PublicKey {
			return nil, errors.Errorf("input %d has no signing data", i)
		}
		x, err := onetimeKey(key, meta.PublicKey, meta.TargetKey, meta.SubaddressIndex)
		if err != nil {
			return nil, errors.Wrapf(err, "input %d", i)
		}
		in.Signature, in.KeyImage = ucrypto.Sign(msg, x)
	}

	logger.Info("signed transaction", "id", req.Tx.ID(), "inputs", len(req.Tx.Inputs))
	return req.Tx, nil
}

// SyncTxos computes the key images a view-only account cannot.
func (s *Signer) SyncTxos(req *wallet.SyncRequest) (*wallet.SyncResponse, error) {
	key, err := s.accountKey(req.AccountID)
	if err != nil {
		return nil, err
	}
	res := &wallet.SyncResponse{
		AccountID: req.AccountID,
		KeyImages: make([]*wallet.SyncedKeyImage, 0, len(req.Txos)),
	}
	for _, txo := range req.Txos {
		x, err := onetimeKey(key, txo.PublicKey, txo.TargetKey, txo.SubaddressIndex)
		if err != nil {
			return nil, errors.Wrapf(err, "txo %s", txo.TxoID)
		}
		res.KeyImages = append(res.KeyImages, &wallet.SyncedKeyImage{
			TxoID:    txo.TxoID,
			KeyImage: ucrypto.ComputeKeyImage(x),
		})
	}
	return res, nil
}

func (s *Signer) GenerateSubaddresses(req *wallet.SubaddressesRequest) (*wallet.SubaddressesResponse, error) {
	key, err := s.accountKey(req.AccountID)
	if err != nil {
		return nil, err
	}
	if req.Count <= 0 {
		return nil, errors.New("count must be positive")
	}
	res := &wallet.SubaddressesResponse{
		AccountID:           req.AccountID,
		Subaddresses:        make([]*wallet.GeneratedSubaddress, req.Count),
		NextSubaddressIndex: req.NextSubaddressIndex + uint64(req.Count),
	}
	for i := range res.Subaddresses {
		idx := req.NextSubaddressIndex + uint64(i)
		addr := key.Subaddress(idx)
		res.Subaddresses[i] = &wallet.GeneratedSubaddress{
			Index:          idx,
			ViewPublicKey:  addr.ViewPublicKey,
			SpendPublicKey: addr.SpendPublicKey,
		}
	}
	return res, nil
}

func (s *Signer) accountKey(accountID string) (*chain.AccountKey, error) {
	key, err := s.ks.AccountKey()
	if err != nil {
		return nil, err
	}
	if accountID != key.ID() {
		return nil, errors.Errorf("request is for account %s, keystore holds %s", accountID, key.ID())
	}
	return key, nil
}

// onetimeKey recovers the private key of an output and checks it against
// the output's target key.
func onetimeKey(key *chain.AccountKey, outputPub, target ucrypto.PublicKey, index uint64) (ucrypto.PrivateKey, error) {
	ss, err := key.SharedSecret(outputPub)
	if err != nil {
		return ucrypto.PrivateKey{}, err
	}
	x := key.OnetimePrivateKey(ss, index)
	if x.PublicKey() != target {
		return ucrypto.PrivateKey{}, errors.New("output is not owned by this key")
	}
	return x, nil
}
