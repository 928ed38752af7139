package venue

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const erc1155ApprovalABI = `[
  {"name":"isApprovedForAll","type":"function","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"},{"name":"operator","type":"address"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"name":"setApprovalForAll","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"operator","type":"address"},{"name":"approved","type":"bool"}],
   "outputs":[]}
]`

// Approver submits on-chain approval transactions so the exchange contract
// can move the account's outcome tokens. Sells fail without the approval;
// the live executor calls Ensure before each exit as a best-effort repair.
type Approver struct {
	eth      *ethclient.Client
	key      *ecdsa.PrivateKey
	owner    common.Address
	ctf      common.Address
	exchange common.Address
	chainID  *big.Int
	abi      abi.ABI
}

// NewApprover dials the RPC endpoint and prepares the approval binding.
func NewApprover(rpcURL, privateKeyHex, ctfAddr, exchangeAddr string, chainID int64) (*Approver, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(erc1155ApprovalABI))
	if err != nil {
		return nil, fmt.Errorf("parse approval abi: %w", err)
	}
	return &Approver{
		eth:      eth,
		key:      key,
		owner:    crypto.PubkeyToAddress(key.PublicKey),
		ctf:      common.HexToAddress(ctfAddr),
		exchange: common.HexToAddress(exchangeAddr),
		chainID:  big.NewInt(chainID),
		abi:      parsed,
	}, nil
}

// IsApproved checks whether the exchange may already move the account's
// tokens.
func (a *Approver) IsApproved(ctx context.Context) (bool, error) {
	data, err := a.abi.Pack("isApprovedForAll", a.owner, a.exchange)
	if err != nil {
		return false, fmt.Errorf("pack isApprovedForAll: %w", err)
	}
	out, err := a.eth.CallContract(ctx, ethereum.CallMsg{To: &a.ctf, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("call isApprovedForAll: %w", err)
	}
	vals, err := a.abi.Unpack("isApprovedForAll", out)
	if err != nil {
		return false, fmt.Errorf("unpack isApprovedForAll: %w", err)
	}
	approved, ok := vals[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected isApprovedForAll result %T", vals[0])
	}
	return approved, nil
}

// Approve submits setApprovalForAll(exchange, true) and returns the tx
// hash without waiting for inclusion.
func (a *Approver) Approve(ctx context.Context) (common.Hash, error) {
	data, err := a.abi.Pack("setApprovalForAll", a.exchange, true)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack setApprovalForAll: %w", err)
	}

	nonce, err := a.eth.PendingNonceAt(ctx, a.owner)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch nonce: %w", err)
	}
	gasPrice, err := a.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}
	gasLimit, err := a.eth.EstimateGas(ctx, ethereum.CallMsg{From: a.owner, To: &a.ctf, Data: data})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := ethtypes.NewTransaction(nonce, a.ctf, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(a.chainID), a.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign approval: %w", err)
	}
	if err := a.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send approval: %w", err)
	}
	return signed.Hash(), nil
}

// Ensure is a best-effort "approve if not yet approved". It returns true
// when an approval transaction was submitted this call.
func (a *Approver) Ensure(ctx context.Context) (bool, error) {
	approved, err := a.IsApproved(ctx)
	if err != nil {
		return false, err
	}
	if approved {
		return false, nil
	}
	if _, err := a.Approve(ctx); err != nil {
		return false, err
	}
	return true, nil
}
