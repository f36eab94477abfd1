package wallet

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ledgerdb"
	"github.com/kurumiimari/umbra/log"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/kurumiimari/umbra/walletdb"
	"github.com/pkg/errors"
	"gopkg.in/tomb.v2"
	"runtime"
	"sort"
	"sync"
)

var nodeLogger = log.ModuleLogger("node")

// Node owns the ledger mirror and every account, and keeps the accounts
// synced as the mirror grows.
type Node struct {
	tmb       *tomb.Tomb
	network   *chain.Network
	engine    *walletdb.Engine
	ledger    *ledgerdb.DB
	ls        *LedgerSync
	submitter TxSubmitter
	accounts  map[string]*Account
	aMtx      sync.RWMutex
}

type NodeStatus struct {
	Status             string `json:"status"`
	Network            string `json:"network"`
	NetworkBlockHeight uint64 `json:"network_block_height"`
	LocalBlockHeight   uint64 `json:"local_block_height"`
	MemUsage           uint64 `json:"mem_usage"`
}

type WalletStatus struct {
	Balance             *walletdb.Balance `json:"balance"`
	NetworkBlockHeight  uint64            `json:"network_block_height"`
	LocalBlockHeight    uint64            `json:"local_block_height"`
	MinSyncedBlockIndex uint64            `json:"min_synced_block_index"`
	IsSynced            bool              `json:"is_synced"`
	AccountIDs          []string          `json:"account_ids"`
}

// AccountOpts are the creation-time settings shared by every way of
// adding an account.
type AccountOpts struct {
	Name            string
	FirstBlockIndex uint64
}

func NewNode(
	tmb *tomb.Tomb,
	network *chain.Network,
	engine *walletdb.Engine,
	ledger *ledgerdb.DB,
	source BlockSource,
	submitter TxSubmitter,
) *Node {
	return &Node{
		tmb:       tmb,
		network:   network,
		engine:    engine,
		ledger:    ledger,
		ls:        NewLedgerSync(tmb, network, source, ledger),
		submitter: submitter,
		accounts:  make(map[string]*Account),
	}
}

func (n *Node) Network() *chain.Network {
	return n.network
}

// Load restores the accounts stored in the wallet database without
// starting any background work.
func (n *Node) Load() error {
	var dbAccs []*walletdb.Account
	err := n.engine.Transaction(func(tx walletdb.Transactor) error {
		var err error
		dbAccs, err = walletdb.ListAccounts(tx, true)
		return err
	})
	if err != nil {
		return errors.WithStack(err)
	}

	n.aMtx.Lock()
	defer n.aMtx.Unlock()
	for _, dbAcc := range dbAccs {
		acc, err := NewAccount(n.network, n.engine, n.ledger, n.ls, n.submitter, dbAcc)
		if err != nil {
			return errors.Wrapf(err, "error loading account %s", dbAcc.ID)
		}
		n.accounts[acc.id] = acc
	}
	return nil
}

func (n *Node) Start() error {
	if err := n.Load(); err != nil {
		return err
	}
	if err := n.ls.Start(); err != nil {
		return errors.Wrap(err, "error starting ledger sync")
	}

	n.tmb.Go(func() error {
		notifC := n.ls.Subscribe()
		if err := n.syncAll(); isFatal(err) {
			return err
		}
		for {
			select {
			case <-n.tmb.Dying():
				return nil
			case notif, ok := <-notifC:
				if !ok {
					return nil
				}
				nodeLogger.Debug("ledger grew", "local_height", notif.LocalHeight)
				if err := n.syncAll(); isFatal(err) {
					return err
				}
			}
		}
	})
	return nil
}

func (n *Node) syncAll() error {
	err := syncAccounts(n.accountList(true))
	if err != nil {
		nodeLogger.Error("error syncing accounts", "err", err)
	}
	return err
}

// isFatal reports errors that must stop the daemon rather than be retried.
func isFatal(err error) bool {
	return errors.Is(err, walletdb.ErrIntegrityViolation) || errors.Is(err, ErrLedgerSafetyStop)
}

// Sync polls the block feed once and brings every account up to the
// mirror.
func (n *Node) Sync() error {
	if err := n.ls.Poll(); err != nil {
		return err
	}
	return syncAccounts(n.accountList(true))
}

func (n *Node) Status() (*NodeStatus, error) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	local, err := n.ledger.NumBlocks()
	if err != nil {
		return nil, err
	}
	network := n.ls.NetworkHeight()
	if network < local {
		network = local
	}
	return &NodeStatus{
		Status:             "OK",
		Network:            n.network.Name,
		NetworkBlockHeight: network,
		LocalBlockHeight:   local,
		MemUsage:           memStats.HeapAlloc,
	}, nil
}

func (n *Node) WalletStatus() (*WalletStatus, error) {
	local, err := n.ledger.NumBlocks()
	if err != nil {
		return nil, err
	}
	network := n.ls.NetworkHeight()
	if network < local {
		network = local
	}

	status := &WalletStatus{
		Balance:            new(walletdb.Balance),
		NetworkBlockHeight: network,
		LocalBlockHeight:   local,
		AccountIDs:         make([]string, 0),
	}
	accounts := n.accountList(false)
	err = n.engine.Transaction(func(tx walletdb.Transactor) error {
		for _, acc := range accounts {
			bal, err := walletdb.GetBalance(tx, acc.id)
			if err != nil {
				return err
			}
			status.Balance.Add(bal)
			status.AccountIDs = append(status.AccountIDs, acc.id)
		}
		min, ok, err := walletdb.MinNextBlockIndex(tx)
		if err != nil {
			return err
		}
		if ok {
			status.MinSyncedBlockIndex = min
		} else {
			status.MinSyncedBlockIndex = local
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	status.IsSynced = status.MinSyncedBlockIndex >= local && local >= network
	return status, nil
}

// CreateAccount creates an account from a fresh mnemonic. The account
// starts scanning at the current chain height since it cannot have
// received anything earlier.
func (n *Node) CreateAccount(name string) (*Account, string, error) {
	mnemonic := chain.GenerateMnemonic()
	height, err := n.chainHeight()
	if err != nil {
		return nil, "", err
	}
	acc, err := n.importMnemonic(mnemonic, &AccountOpts{
		Name:            name,
		FirstBlockIndex: height,
	}, nil, false)
	if err != nil {
		return nil, "", err
	}
	return acc, mnemonic, nil
}

func (n *Node) ImportAccount(mnemonic string, opts *AccountOpts) (*Account, error) {
	height, err := n.chainHeight()
	if err != nil {
		return nil, err
	}
	return n.importMnemonic(mnemonic, opts, &height, false)
}

func (n *Node) importMnemonic(mnemonic string, opts *AccountOpts, importBlock *uint64, ephemeral bool) (*Account, error) {
	entropy, err := chain.MnemonicEntropy(mnemonic)
	if err != nil {
		return nil, err
	}
	key, err := chain.AccountKeyFromMnemonic(n.network, mnemonic, 0)
	if err != nil {
		return nil, err
	}
	return n.addAccount(&walletdb.CreateAccountOpts{
		ID:                   key.ID(),
		Name:                 opts.Name,
		AccountKey:           key.Bytes(),
		Ephemeral:            ephemeral,
		Entropy:              entropy,
		KeyDerivationVersion: chain.KeyDerivationVersion,
		FirstBlockIndex:      opts.FirstBlockIndex,
		ImportBlockIndex:     importBlock,
	})
}

// ImportAccountKey imports an account from raw view and spend private keys.
func (n *Node) ImportAccountKey(viewPriv, spendPriv ucrypto.PrivateKey, opts *AccountOpts) (*Account, error) {
	height, err := n.chainHeight()
	if err != nil {
		return nil, err
	}
	key := chain.NewAccountKey(viewPriv, spendPriv)
	return n.addAccount(&walletdb.CreateAccountOpts{
		ID:               key.ID(),
		Name:             opts.Name,
		AccountKey:       key.Bytes(),
		FirstBlockIndex:  opts.FirstBlockIndex,
		ImportBlockIndex: &height,
	})
}

func (n *Node) ImportViewOnlyAccount(view *chain.ViewAccountKey, opts *AccountOpts) (*Account, error) {
	height, err := n.chainHeight()
	if err != nil {
		return nil, err
	}
	return n.addAccount(&walletdb.CreateAccountOpts{
		ID:               view.ID(),
		Name:             opts.Name,
		AccountKey:       view.Bytes(),
		ViewOnly:         true,
		FirstBlockIndex:  opts.FirstBlockIndex,
		ImportBlockIndex: &height,
	})
}

// ExportViewOnlyAccount returns the key material a view-only copy of the
// account needs.
func (n *Node) ExportViewOnlyAccount(id string) (*chain.ViewAccountKey, error) {
	acc, err := n.Account(id)
	if err != nil {
		return nil, err
	}
	return acc.view, nil
}

func (n *Node) addAccount(opts *walletdb.CreateAccountOpts) (*Account, error) {
	n.aMtx.Lock()
	defer n.aMtx.Unlock()

	if _, ok := n.accounts[opts.ID]; ok {
		return nil, ErrAccountExists
	}
	if opts.KeyImageBloom == nil {
		opts.KeyImageBloom = NewKeyImageBloom().Bytes()
	}

	var acc *Account
	err := n.engine.Transaction(func(tx walletdb.Transactor) error {
		dbAcc, err := walletdb.CreateAccount(tx, opts)
		if err != nil {
			return err
		}
		acc, err = NewAccount(n.network, n.engine, n.ledger, n.ls, n.submitter, dbAcc)
		if err != nil {
			return err
		}
		reserved := []struct {
			index   uint64
			comment string
		}{
			{chain.DefaultSubaddressIndex, "Main"},
			{chain.ChangeSubaddressIndex, "Change"},
		}
		for _, r := range reserved {
			addr := acc.view.Subaddress(r.index)
			if _, err := acc.assignSubaddresses(tx, dbAcc, []*chain.PublicAddress{addr}, r.comment); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "error creating account")
	}

	n.accounts[acc.id] = acc
	nodeLogger.Info("added account", "id", acc.id, "view_only", acc.ViewOnly(), "ephemeral", acc.ephemeral)
	return acc, nil
}

// RemoveAccount deletes an account and everything only it references.
func (n *Node) RemoveAccount(id string) error {
	n.aMtx.Lock()
	acc, ok := n.accounts[id]
	if !ok {
		n.aMtx.Unlock()
		return ErrAccountNotFound
	}
	delete(n.accounts, id)
	n.aMtx.Unlock()

	acc.mtx.Lock()
	defer acc.mtx.Unlock()
	err := n.engine.Transaction(func(tx walletdb.Transactor) error {
		return walletdb.DeleteAccount(tx, id)
	})
	if err != nil {
		return err
	}
	nodeLogger.Info("removed account", "id", id)
	return nil
}

func (n *Node) Account(id string) (*Account, error) {
	n.aMtx.RLock()
	defer n.aMtx.RUnlock()
	acc := n.accounts[id]
	if acc == nil {
		return nil, ErrAccountNotFound
	}
	return acc, nil
}

// Accounts returns user-facing accounts ordered by ID. Ephemeral gift code
// accounts are hidden.
func (n *Node) Accounts() []*Account {
	return n.accountList(false)
}

func (n *Node) accountList(includeEphemeral bool) []*Account {
	n.aMtx.RLock()
	defer n.aMtx.RUnlock()
	out := make([]*Account, 0, len(n.accounts))
	for _, acc := range n.accounts {
		if acc.ephemeral && !includeEphemeral {
			continue
		}
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].id < out[j].id
	})
	return out
}

func (n *Node) chainHeight() (uint64, error) {
	local, err := n.ledger.NumBlocks()
	if err != nil {
		return 0, err
	}
	if network := n.ls.NetworkHeight(); network > local {
		return network, nil
	}
	return local, nil
}
