package main

import (
	"github.com/kurumiimari/umbra/cmd/umbra/cmd"
)

func main() {
	cmd.Execute()
}
