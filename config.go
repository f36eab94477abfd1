package umbra

import (
	"github.com/kurumiimari/umbra/chain"
)

type config struct {
	Network  *chain.Network
	Prefix   string
	LogLevel string
}

var Config = new(config)
