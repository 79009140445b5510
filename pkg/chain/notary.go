package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Notary records a proof-of-work on an external ledger and checks whether a
// previously submitted record settled. A nil Notary means notarization is not
// configured and callers skip the step entirely.
type Notary interface {
	// Mint sends a zero-value transaction carrying metadata to the recipient
	// wallet and returns the transaction hash.
	Mint(ctx context.Context, recipient string, metadata []byte) (string, error)
	// Verify reports whether the transaction was mined successfully.
	Verify(ctx context.Context, txHash string) (bool, error)
}

// Client is the subset of the Ethereum RPC API the notary uses.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

const mintGasLimit = 100_000

// EthereumNotary notarizes proofs as calldata-bearing transfers on an EVM
// chain, signed with a server-held key.
type EthereumNotary struct {
	client Client
	key    *ecdsa.PrivateKey
	from   common.Address
}

// Dial connects to the configured RPC endpoint and parses the signing key.
// privateKeyHex may carry a 0x prefix.
func Dial(rpcURL, privateKeyHex string) (*EthereumNotary, error) {
	endpoint := strings.TrimSpace(rpcURL)
	if endpoint == "" {
		return nil, fmt.Errorf("chain rpc endpoint required")
	}

	key, err := gethcrypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid notary signing key: %w", err)
	}

	client, err := ethclient.Dial(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain rpc: %w", err)
	}

	return NewEthereumNotary(client, key), nil
}

// NewEthereumNotary constructs a notary from an existing client and key.
func NewEthereumNotary(client Client, key *ecdsa.PrivateKey) *EthereumNotary {
	return &EthereumNotary{
		client: client,
		key:    key,
		from:   gethcrypto.PubkeyToAddress(key.PublicKey),
	}
}

func (n *EthereumNotary) Mint(ctx context.Context, recipient string, metadata []byte) (string, error) {
	if n == nil || n.client == nil {
		return "", fmt.Errorf("notary not initialized")
	}
	if !common.IsHexAddress(recipient) {
		return "", fmt.Errorf("invalid recipient address: %s", recipient)
	}

	chainID, err := n.client.ChainID(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch chain id: %w", err)
	}

	nonce, err := n.client.PendingNonceAt(ctx, n.from)
	if err != nil {
		return "", fmt.Errorf("fetch nonce: %w", err)
	}

	gasPrice, err := n.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch gas price: %w", err)
	}

	to := common.HexToAddress(recipient)
	tx := gethtypes.NewTransaction(nonce, to, big.NewInt(0), mintGasLimit, gasPrice, metadata)

	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(chainID), n.key)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	if err := n.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	return signed.Hash().Hex(), nil
}

// Verify polls for the receipt until the context expires.
func (n *EthereumNotary) Verify(ctx context.Context, txHash string) (bool, error) {
	if n == nil || n.client == nil {
		return false, fmt.Errorf("notary not initialized")
	}

	hash := common.HexToHash(txHash)
	for {
		receipt, err := n.client.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt.Status == gethtypes.ReceiptStatusSuccessful, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return false, fmt.Errorf("fetch receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}
