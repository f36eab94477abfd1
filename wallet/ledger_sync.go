package wallet

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ledgerdb"
	"github.com/kurumiimari/umbra/log"
	"github.com/pkg/errors"
	"gopkg.in/tomb.v2"
	"sync"
	"time"
)

const (
	LedgerFetchBatch = 100
)

var lsLogger = log.ModuleLogger("ledger-sync")

// LedgerSync mirrors the block feed into the local ledger and notifies
// subscribers whenever the mirror grows.
type LedgerSync struct {
	tmb           *tomb.Tomb
	network       *chain.Network
	source        BlockSource
	ledger        *ledgerdb.DB
	subs          []chan *LedgerNotification
	networkHeight uint64
	localHeight   uint64
	mtx           sync.RWMutex
	pollMtx       sync.Mutex
	dead          bool
}

type LedgerNotification struct {
	NetworkHeight uint64
	LocalHeight   uint64
}

func NewLedgerSync(tmb *tomb.Tomb, network *chain.Network, source BlockSource, ledger *ledgerdb.DB) *LedgerSync {
	return &LedgerSync{
		tmb:     tmb,
		network: network,
		source:  source,
		ledger:  ledger,
	}
}

func (l *LedgerSync) Start() error {
	local, err := l.ledger.NumBlocks()
	if err != nil {
		return err
	}
	l.mtx.Lock()
	l.localHeight = local
	l.mtx.Unlock()

	l.tmb.Go(func() error {
		if err := l.Poll(); err != nil {
			lsLogger.Error("error polling", "err", err)
			if errors.Is(err, ErrLedgerSafetyStop) {
				return err
			}
		}

		tick := time.NewTicker(l.network.PollInterval)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
				if err := l.Poll(); err != nil {
					lsLogger.Error("error polling", "err", err)
					if errors.Is(err, ErrLedgerSafetyStop) {
						return err
					}
				}
			case <-l.tmb.Dying():
				l.mtx.Lock()
				l.dead = true
				for _, sub := range l.subs {
					close(sub)
				}
				l.subs = nil
				l.mtx.Unlock()
				return nil
			}
		}
	})
	return nil
}

func (l *LedgerSync) NetworkHeight() uint64 {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.networkHeight
}

func (l *LedgerSync) LocalHeight() uint64 {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.localHeight
}

// Subscribe returns a channel that receives the latest heights after every
// poll that grows the mirror. Stale notifications are dropped rather than
// queued.
func (l *LedgerSync) Subscribe() <-chan *LedgerNotification {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.dead {
		panic("ledger sync is closed")
	}

	ch := make(chan *LedgerNotification, 1)
	l.subs = append(l.subs, ch)
	return ch
}

// Poll fetches every block the feed has that the mirror does not.
func (l *LedgerSync) Poll() error {
	l.pollMtx.Lock()
	defer l.pollMtx.Unlock()

	networkHeight, err := l.source.NetworkHeight()
	if err != nil {
		return errors.Wrap(err, "error getting network height")
	}
	local, err := l.ledger.NumBlocks()
	if err != nil {
		return err
	}
	if local > networkHeight {
		lsLogger.Error(
			"local ledger ahead of network",
			"local_height", local,
			"network_height", networkHeight,
		)
		return ErrLedgerSafetyStop
	}

	l.mtx.Lock()
	l.networkHeight = networkHeight
	l.localHeight = local
	l.mtx.Unlock()

	start := local
	for local < networkHeight {
		count := LedgerFetchBatch
		if remaining := networkHeight - local; remaining < uint64(count) {
			count = int(remaining)
		}
		blocks, err := l.source.GetBlocks(local, count)
		if err != nil {
			return errors.Wrap(err, "error fetching blocks")
		}
		if len(blocks) == 0 {
			break
		}
		if err := l.ledger.AppendBlocks(blocks); err != nil {
			if errors.Is(err, ledgerdb.ErrDiscontinuous) {
				lsLogger.Error("block feed is discontinuous", "height", local, "err", err)
				return ErrLedgerSafetyStop
			}
			return err
		}
		local += uint64(len(blocks))

		l.mtx.Lock()
		l.localHeight = local
		l.mtx.Unlock()
	}

	if local > start {
		lsLogger.Debug("ledger updated", "local_height", local, "network_height", networkHeight)
		l.notify(&LedgerNotification{
			NetworkHeight: networkHeight,
			LocalHeight:   local,
		})
	}
	return nil
}

func (l *LedgerSync) notify(notif *LedgerNotification) {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	for _, sub := range l.subs {
		select {
		case sub <- notif:
		default:
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- notif:
			default:
			}
		}
	}
}
