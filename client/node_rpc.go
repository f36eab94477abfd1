package client

import (
	"encoding/base64"
	"encoding/hex"
	"github.com/kurumiimari/umbra/chain"
	"github.com/pkg/errors"
	"github.com/ybbus/jsonrpc/v2"
	"sort"
)

const (
	methodNetworkHeight = "chain_getNetworkHeight"
	methodGetBlock      = "chain_getBlock"
	methodSubmitTx      = "tx_submit"
)

// NodeRPCClient talks to a validator node over JSON-RPC. It serves as both
// the wallet's block source and its transaction submitter.
type NodeRPCClient struct {
	client jsonrpc.RPCClient
}

func NewNodeRPCClient(url string, apiKey string) *NodeRPCClient {
	var client jsonrpc.RPCClient
	if apiKey == "" {
		client = jsonrpc.NewClient(url)
	} else {
		client = jsonrpc.NewClientWithOpts(url, &jsonrpc.RPCClientOpts{
			CustomHeaders: map[string]string{
				"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte("x:"+apiKey)),
			},
		})
	}

	return &NodeRPCClient{
		client: client,
	}
}

func (c *NodeRPCClient) NetworkHeight() (uint64, error) {
	var height uint64
	err := c.client.CallFor(&height, methodNetworkHeight)
	return height, errors.Wrap(err, "error getting network height")
}

// GetBlocks fetches up to count blocks starting at start in one batch. The
// result is the contiguous run of blocks the node returned; it is shorter
// than count when the node does not have them yet.
func (c *NodeRPCClient) GetBlocks(start uint64, count int) ([]*chain.Block, error) {
	if count <= 0 {
		return nil, nil
	}
	reqs := make(jsonrpc.RPCRequests, count)
	for i := 0; i < count; i++ {
		reqs[i] = &jsonrpc.RPCRequest{
			Method: methodGetBlock,
			Params: jsonrpc.Params(start + uint64(i)),
			ID:     i,
		}
	}
	batchRes, err := c.client.CallBatch(reqs)
	if err != nil {
		return nil, errors.Wrap(err, "error getting blocks")
	}
	sort.Slice(batchRes, func(i, j int) bool {
		return batchRes[i].ID < batchRes[j].ID
	})

	var blocks []*chain.Block
	for i, bRes := range batchRes {
		if bRes.ID != i || bRes.Error != nil {
			break
		}
		blockHex, ok := bRes.Result.(string)
		if !ok {
			return nil, errors.Errorf("invalid block response at %d", start+uint64(i))
		}
		data, err := hex.DecodeString(blockHex)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		block, err := chain.NewBlockFromBytes(data)
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding block %d", start+uint64(i))
		}
		if block.Index != start+uint64(i) {
			return nil, errors.Errorf("node returned block %d for %d", block.Index, start+uint64(i))
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// SubmitTx sends a signed transaction. A JSON-RPC error from the node is a
// rejection and comes back as *chain.RejectError; anything else is a
// delivery failure.
func (c *NodeRPCClient) SubmitTx(tx *chain.Tx) error {
	var res string
	err := c.client.CallFor(&res, methodSubmitTx, hex.EncodeToString(tx.Bytes()))
	if err == nil {
		return nil
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return &chain.RejectError{Reason: rpcErr.Message}
	}
	return errors.Wrap(err, "error submitting transaction")
}
