package cmd

import (
	"encoding/json"
	"fmt"
	"github.com/kurumiimari/umbra"
	"github.com/kurumiimari/umbra/wallet/api"
	"github.com/pkg/errors"
	"golang.org/x/term"
	"os"
	"strconv"
	"strings"
	"syscall"
)

func apiClient() (*api.Client, error) {
	var url string
	if walletURL == "" {
		url = fmt.Sprintf("http://localhost:%d", umbra.Config.Network.WalletPort)
	} else {
		url = walletURL
	}

	client := api.NewClient(url, walletAPIKey)

	_, err := client.Status()
	if err != nil {
		if strings.Contains(err.Error(), "connection refused") {
			return nil, errors.New("connection to umbra refused - did you select the right network?")
		}
		return nil, err
	}

	return client, nil
}

func intArg(in string, deflt int) int {
	out, err := strconv.Atoi(in)
	if err != nil {
		return deflt
	}
	return out
}

func uint64Arg(in string, name string) (uint64, error) {
	out, err := strconv.ParseUint(in, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid %s", name)
	}
	return out, nil
}

// pageArgs turns optional <page> <per-page> arguments into count and
// offset.
func pageArgs(args []string) (int, int) {
	page, perPage := 1, 50
	if len(args) > 0 {
		page = intArg(args[0], 1)
	}
	if len(args) > 1 {
		perPage = intArg(args[1], 50)
	}
	if page < 1 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}

func printJSON(in interface{}) error {
	out, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))
	return nil
}

func readJSONFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "error reading file")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "error parsing file")
	}
	return nil
}

func readSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	// need the cast below for it to compile on windows
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println("")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
