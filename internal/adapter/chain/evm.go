package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stablecoin-gateway/config"
	"stablecoin-gateway/internal/core/domain"
	"stablecoin-gateway/internal/core/ports"
	"stablecoin-gateway/pkg/apperror"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EVMChainClient implements ports.ChainClient over JSON-RPC for EVM networks.
// One dialed client per configured network; every call is bounded by the
// configured RPC timeout.
type EVMChainClient struct {
	clients map[domain.Network]*ethclient.Client
	timeout time.Duration
}

// NewEVMChainClient dials every configured network RPC endpoint.
func NewEVMChainClient(cfg config.ChainConfig) (*EVMChainClient, error) {
	clients := make(map[domain.Network]*ethclient.Client, len(cfg.Networks))
	for name, netCfg := range cfg.Networks {
		client, err := ethclient.Dial(netCfg.RPCURL)
		if err != nil {
			for _, c := range clients {
				c.Close()
			}
			return nil, fmt.Errorf("dialing %s RPC: %w", name, err)
		}
		clients[domain.Network(name)] = client
	}
	return &EVMChainClient{clients: clients, timeout: cfg.RPCTimeout}, nil
}

// Close releases all RPC connections.
func (c *EVMChainClient) Close() {
	for _, client := range c.clients {
		client.Close()
	}
}

// HeadBlock returns the current head height of the network.
func (c *EVMChainClient) HeadBlock(ctx context.Context, network domain.Network) (uint64, error) {
	client, err := c.clientFor(network)
	if err != nil {
		return 0, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	head, err := client.BlockNumber(callCtx)
	if err != nil {
		return 0, apperror.ErrChainUnavailable(string(network), err)
	}
	return head, nil
}

// TransactionByHash reports whether the node knows the transaction and
// whether it is still in the mempool.
func (c *EVMChainClient) TransactionByHash(ctx context.Context, network domain.Network, hash string) (bool, bool, error) {
	client, err := c.clientFor(network)
	if err != nil {
		return false, false, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, pending, err := client.TransactionByHash(callCtx, common.HexToHash(hash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return false, false, nil
		}
		return false, false, apperror.ErrChainUnavailable(string(network), err)
	}
	return true, pending, nil
}

// TransactionReceipt returns the receipt of a mined transaction, or nil when
// the transaction is not on the canonical chain.
func (c *EVMChainClient) TransactionReceipt(ctx context.Context, network domain.Network, hash string) (*ports.TxReceipt, error) {
	client, err := c.clientFor(network)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	receipt, err := client.TransactionReceipt(callCtx, common.HexToHash(hash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return nil, apperror.ErrChainUnavailable(string(network), err)
	}
	return &ports.TxReceipt{
		BlockNumber: receipt.BlockNumber.Uint64(),
		Reverted:    receipt.Status == types.ReceiptStatusFailed,
	}, nil
}

func (c *EVMChainClient) clientFor(network domain.Network) (*ethclient.Client, error) {
	client, ok := c.clients[network]
	if !ok {
		return nil, apperror.ErrChainUnavailable(string(network), fmt.Errorf("network not configured"))
	}
	return client, nil
}
