package signer

import (
	"encoding/json"
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/log"
	"github.com/pkg/errors"
	"os"
	"sync"
)

const (
	KeystoreVersion = 1
)

var (
	ErrLocked          = errors.New("locked")
	ErrInvalidPassword = errors.New("invalid password")
)

var logger = log.ModuleLogger("signer")

type keystoreFile struct {
	Version   int             `json:"version"`
	Network   string          `json:"network"`
	AccountID string          `json:"account_id"`
	SecretBox json.RawMessage `json:"secret_box"`
}

// Keystore is an encrypted mnemonic on disk. The account key is only held
// in memory while unlocked.
type Keystore struct {
	network   *chain.Network
	accountID string
	box       SecretBox
	key       *chain.AccountKey
	mtx       sync.Mutex
}

// CreateKeystore encrypts mnemonic under password and writes it to path.
// An existing file is never overwritten.
func CreateKeystore(path string, network *chain.Network, mnemonic string, password string) (*Keystore, error) {
	key, err := chain.AccountKeyFromMnemonic(network, mnemonic, 0)
	if err != nil {
		return nil, err
	}
	box, err := EncryptDefault([]byte(mnemonic), password)
	if err != nil {
		return nil, errors.Wrap(err, "error encrypting mnemonic")
	}
	boxJSON, err := json.Marshal(box)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	fileJSON, err := json.MarshalIndent(&keystoreFile{
		Version:   KeystoreVersion,
		Network:   network.Name,
		AccountID: key.ID(),
		SecretBox: boxJSON,
	}, "", "  ")
	if err != nil {
		return nil, errors.WithStack(err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "error creating keystore file")
	}
	defer f.Close()
	if _, err := f.Write(fileJSON); err != nil {
		return nil, errors.Wrap(err, "error writing keystore file")
	}

	logger.Info("created keystore", "path", path, "account_id", key.ID())
	return &Keystore{
		network:   network,
		accountID: key.ID(),
		box:       box,
	}, nil
}

func OpenKeystore(path string, network *chain.Network) (*Keystore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error reading keystore file")
	}
	var file keystoreFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrap(err, "error parsing keystore file")
	}
	if file.Version != KeystoreVersion {
		return nil, errors.Errorf("unsupported keystore version %d", file.Version)
	}
	if file.Network != network.Name {
		return nil, errors.Errorf("keystore is for network %s", file.Network)
	}
	box, err := UnmarshalSecretBox(file.SecretBox)
	if err != nil {
		return nil, err
	}
	return &Keystore{
		network:   network,
		accountID: file.AccountID,
		box:       box,
	}, nil
}

func (k *Keystore) AccountID() string {
	return k.accountID
}

func (k *Keystore) Unlock(password string) error {
	k.mtx.Lock()
	defer k.mtx.Unlock()
	mnemonic, err := k.box.Decrypt(password)
	if err != nil {
		return ErrInvalidPassword
	}
	key, err := chain.AccountKeyFromMnemonic(k.network, string(mnemonic), 0)
	if err != nil {
		return errors.Wrap(err, "keystore holds an invalid mnemonic")
	}
	if key.ID() != k.accountID {
		return errors.New("keystore account id does not match its key")
	}
	k.key = key
	return nil
}

func (k *Keystore) Lock() {
	k.mtx.Lock()
	defer k.mtx.Unlock()
	k.key = nil
}

func (k *Keystore) IsLocked() bool {
	k.mtx.Lock()
	defer k.mtx.Unlock()
	return k.key == nil
}

func (k *Keystore) AccountKey() (*chain.AccountKey, error) {
	k.mtx.Lock()
	defer k.mtx.Unlock()
	if k.key == nil {
		return nil, ErrLocked
	}
	return k.key, nil
}
