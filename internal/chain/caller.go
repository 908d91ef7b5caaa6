package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/deploydesk/deploydesk/internal/rpc"
	"github.com/deploydesk/deploydesk/internal/wallet"
)

// factoryABIJSON covers exactly the factory surface the dashboard consumes.
// The signatures are fixed; a mismatch here silently corrupts decoded data.
const factoryABIJSON = `[
	{"type":"function","name":"deploymentFee","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"paused","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getUserDeployments","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"tuple[]","components":[{"name":"contractAddress","type":"address"},{"name":"owner","type":"address"},{"name":"label","type":"string"},{"name":"creationTime","type":"uint256"}]}]},
	{"type":"function","name":"createDeployment","stateMutability":"payable","inputs":[],"outputs":[]}
]`

// Deployment is one record returned by getUserDeployments, in chain order.
type Deployment struct {
	ContractAddress common.Address
	Owner           common.Address
	Label           string
	CreationTime    *big.Int
}

// Caller is the contract-call boundary the sync core depends on.
type Caller interface {
	// DeploymentFee reads the current creation fee from the factory.
	DeploymentFee(ctx context.Context, h Handle) (*big.Int, error)

	// Paused reads the factory's pause flag.
	Paused(ctx context.Context, h Handle) (bool, error)

	// UserDeployments lists the deployments owned by user, in the order the
	// contract returns them.
	UserDeployments(ctx context.Context, h Handle, user common.Address) ([]Deployment, error)

	// CreateDeployment submits the payable creation call carrying value wei
	// under the given account and returns the transaction hash.
	CreateDeployment(ctx context.Context, h Handle, acct *wallet.Account, value *big.Int) (common.Hash, error)
}

// RPCCaller implements Caller over a JSON-RPC client.
type RPCCaller struct {
	client   rpc.Client
	abi      abi.ABI
	gasLimit uint64
	logger   *slog.Logger
}

// NewRPCCaller creates a caller bound to the given RPC client.
func NewRPCCaller(client rpc.Client, gasLimit uint64, logger *slog.Logger) (*RPCCaller, error) {
	if logger == nil {
		logger = slog.Default()
	}

	parsed, err := abi.JSON(strings.NewReader(factoryABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory ABI: %w", err)
	}

	return &RPCCaller{
		client:   client,
		abi:      parsed,
		gasLimit: gasLimit,
		logger:   logger,
	}, nil
}

// read packs a view call, executes it against the handle's factory, and
// returns the unpacked outputs.
func (c *RPCCaller) read(ctx context.Context, h Handle, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	ret, err := c.client.CallContract(ctx, h.Factory, data)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}

	out, err := c.abi.Unpack(method, ret)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return out, nil
}

// DeploymentFee reads the current creation fee from the factory.
func (c *RPCCaller) DeploymentFee(ctx context.Context, h Handle) (*big.Int, error) {
	out, err := c.read(ctx, h, "deploymentFee")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Paused reads the factory's pause flag.
func (c *RPCCaller) Paused(ctx context.Context, h Handle) (bool, error) {
	out, err := c.read(ctx, h, "paused")
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// UserDeployments lists the deployments owned by user.
func (c *RPCCaller) UserDeployments(ctx context.Context, h Handle, user common.Address) ([]Deployment, error) {
	out, err := c.read(ctx, h, "getUserDeployments", user)
	if err != nil {
		return nil, err
	}

	raw := *abi.ConvertType(out[0], new([]struct {
		ContractAddress common.Address `abi:"contractAddress"`
		Owner           common.Address `abi:"owner"`
		Label           string         `abi:"label"`
		CreationTime    *big.Int       `abi:"creationTime"`
	})).(*[]struct {
		ContractAddress common.Address `abi:"contractAddress"`
		Owner           common.Address `abi:"owner"`
		Label           string         `abi:"label"`
		CreationTime    *big.Int       `abi:"creationTime"`
	})

	records := make([]Deployment, 0, len(raw))
	for _, r := range raw {
		records = append(records, Deployment{
			ContractAddress: r.ContractAddress,
			Owner:           r.Owner,
			Label:           r.Label,
			CreationTime:    r.CreationTime,
		})
	}
	return records, nil
}

// CreateDeployment signs and submits the payable creation call.
func (c *RPCCaller) CreateDeployment(ctx context.Context, h Handle, acct *wallet.Account, value *big.Int) (common.Hash, error) {
	data, err := c.abi.Pack("createDeployment")
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack createDeployment: %w", err)
	}

	nonce, err := c.client.GetNonce(ctx, acct.Address.Hex())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice, err := c.client.GetGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	to := h.Factory
	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      c.gasLimit,
		To:       &to,
		Value:    value,
		Data:     data,
	})

	signed, err := acct.SignTx(tx, h.ChainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	txRLP, err := signed.MarshalBinary()
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode transaction: %w", err)
	}

	hash, err := c.client.SendRawTransaction(ctx, txRLP)
	if err != nil {
		return common.Hash{}, err
	}

	c.logger.Info("deployment transaction submitted",
		slog.String("txHash", hash.Hex()),
		slog.String("factory", h.Factory.Hex()),
		slog.String("value", value.String()),
	)
	return hash, nil
}
