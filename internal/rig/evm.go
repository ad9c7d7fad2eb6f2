package rig

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rigwatch/custodian/internal/evm"
)

const rigABIJSON = `[
  {"name":"currentPrice","type":"function","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"epochId","type":"function","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"paymentToken","type":"function","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"name":"purchase","type":"function","stateMutability":"nonpayable",
   "inputs":[
     {"name":"recipient","type":"address"},
     {"name":"expectedEpochId","type":"uint256"},
     {"name":"deadline","type":"uint256"},
     {"name":"maxPrice","type":"uint256"},
     {"name":"metadata","type":"string"}],
   "outputs":[{"name":"pricePaid","type":"uint256"}]},
  {"name":"Purchased","type":"event","anonymous":false,
   "inputs":[
     {"name":"recipient","type":"address","indexed":true},
     {"name":"epochId","type":"uint256","indexed":false},
     {"name":"pricePaid","type":"uint256","indexed":false}]}
]`

var rigABI = func() *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(rigABIJSON))
	if err != nil {
		panic(err)
	}
	return &parsed
}()

// EVMRig talks to a deployed rig contract through an evm.Client.
type EVMRig struct {
	client *evm.Client
	addr   common.Address
}

func NewEVMRig(client *evm.Client, addr common.Address) *EVMRig {
	return &EVMRig{client: client, addr: addr}
}

func (r *EVMRig) Address() common.Address { return r.addr }

func (r *EVMRig) CurrentPrice(ctx context.Context) (*big.Int, error) {
	out, err := r.client.CallView(ctx, r.addr, rigABI, "currentPrice")
	if err != nil {
		return nil, fmt.Errorf("querying rig price: %w", err)
	}
	price, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected currentPrice output type %T", out[0])
	}
	return price, nil
}

func (r *EVMRig) EpochID(ctx context.Context) (uint64, error) {
	out, err := r.client.CallView(ctx, r.addr, rigABI, "epochId")
	if err != nil {
		return 0, fmt.Errorf("querying rig epoch: %w", err)
	}
	epoch, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected epochId output type %T", out[0])
	}
	return epoch.Uint64(), nil
}

func (r *EVMRig) PaymentToken(ctx context.Context) (common.Address, error) {
	out, err := r.client.CallView(ctx, r.addr, rigABI, "paymentToken")
	if err != nil {
		return common.Address{}, fmt.Errorf("querying rig payment token: %w", err)
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected paymentToken output type %T", out[0])
	}
	return addr, nil
}

func (r *EVMRig) Purchase(ctx context.Context, params PurchaseParams) (*big.Int, error) {
	receipt, err := r.client.Transact(ctx, r.addr, nil, rigABI, "purchase",
		params.Recipient,
		new(big.Int).SetUint64(params.ExpectedEpoch),
		big.NewInt(params.Deadline.Unix()),
		params.MaxPrice,
		params.Metadata,
	)
	if err != nil {
		return nil, classifyRejection(err)
	}

	// The return value of a transaction is not observable off-chain; the
	// rig reports the settled amount through its Purchased event instead.
	purchased := rigABI.Events["Purchased"]
	for _, l := range receipt.Logs {
		if l.Address != r.addr || len(l.Topics) == 0 || l.Topics[0] != purchased.ID {
			continue
		}
		out, err := rigABI.Unpack("Purchased", l.Data)
		if err != nil {
			return nil, fmt.Errorf("decoding Purchased event: %w", err)
		}
		paid, ok := out[1].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("unexpected pricePaid type %T", out[1])
		}
		return paid, nil
	}
	return nil, fmt.Errorf("purchase succeeded but no Purchased event found in tx %s", receipt.TxHash.Hex())
}

// classifyRejection maps revert reasons onto the rig sentinel errors so the
// controller can distinguish a lost epoch race from a configuration or
// transport problem.
func classifyRejection(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "epoch"):
		return fmt.Errorf("%w: %v", ErrEpochAdvanced, err)
	case strings.Contains(msg, "deadline"), strings.Contains(msg, "expired"):
		return fmt.Errorf("%w: %v", ErrDeadlineExceeded, err)
	case strings.Contains(msg, "price"):
		return fmt.Errorf("%w: %v", ErrPriceExceeded, err)
	default:
		return fmt.Errorf("rig purchase failed: %w", err)
	}
}
