package itest

import (
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"testing"
)

type NodeSuite struct {
	suite.Suite
	validator *Validator
	prefix    string
	daemon    *daemon
}

func (s *NodeSuite) SetupTest() {
	s.validator = StartValidator()
	s.prefix = s.T().TempDir()
	s.daemon = startDaemon(s.T(), s.validator, s.prefix)
}

func (s *NodeSuite) TearDownTest() {
	if s.daemon != nil {
		s.daemon.stop(s.T())
	}
	s.validator.Stop()
}

func (s *NodeSuite) TestStatus() {
	t := s.T()
	client := s.daemon.client
	require.NoError(t, client.Poll())
	status, err := client.Status()
	require.NoError(t, err)
	require.Equal(t, "OK", status.Status)
	require.Equal(t, "regtest", status.Network)
	require.EqualValues(t, 1, status.LocalBlockHeight)

	s.validator.Network.MineTo(7)
	require.NoError(t, client.Poll())
	status, err = client.Status()
	require.NoError(t, err)
	require.EqualValues(t, 7, status.NetworkBlockHeight)
	require.EqualValues(t, 7, status.LocalBlockHeight)
}

func (s *NodeSuite) TestRestartKeepsState() {
	t := s.T()
	acc := createAccount(t, s.daemon.client, "persistent")
	s.validator.Mint(acc.MainAddress, 3_000_000)
	mineAndPoll(t, s.validator, s.daemon.client)
	requireBalance(t, s.daemon.client, acc.ID, 3_000_000, 0)

	s.daemon.stop(t)
	s.daemon = nil
	s.validator.Network.MineTo(5)

	s.daemon = startDaemon(t, s.validator, s.prefix)
	client := s.daemon.client
	require.NoError(t, client.Poll())
	accounts, err := client.GetAccounts()
	require.NoError(t, err)
	require.Len(t, accounts.Accounts, 1)
	require.Equal(t, acc.ID, accounts.Accounts[0].ID)
	requireBalance(t, client, acc.ID, 3_000_000, 0)

	status, err := client.GetSyncStatus(acc.ID)
	require.NoError(t, err)
	require.True(t, status.IsSynced)
	require.EqualValues(t, 5, status.AccountBlockHeight)
}

func TestNodeSuite(t *testing.T) {
	suite.Run(t, new(NodeSuite))
}
