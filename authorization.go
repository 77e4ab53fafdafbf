package x402

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	addressType, _ = abi.NewType("address", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)

	nonceArguments = abi.Arguments{
		{Type: addressType},
		{Type: addressType},
		{Type: uint256Type},
		{Type: uint256Type},
	}
)

// BuildAuthorization constructs a TransferAuthorization for a payment of
// value (smallest asset unit) from payer to payee. The validity window is
// [0, now+1h) and the nonce is derived deterministically from the inputs
// and the current millisecond timestamp, so no persistent counter is
// needed across sessions or devices.
func BuildAuthorization(payer, payee string, value *big.Int, now time.Time) (TransferAuthorization, error) {
	if value == nil || value.Sign() < 0 {
		return TransferAuthorization{}, fmt.Errorf("invalid authorization value: %v", value)
	}

	nonce, err := ComputeNonce(payer, payee, value, now)
	if err != nil {
		return TransferAuthorization{}, err
	}

	return TransferAuthorization{
		From:        common.HexToAddress(payer).Hex(),
		To:          common.HexToAddress(payee).Hex(),
		Value:       new(big.Int).Set(value),
		ValidAfter:  0,
		ValidBefore: now.Unix() + DefaultValidityPeriod,
		Nonce:       nonce,
	}, nil
}

// ComputeNonce derives the 32-byte authorization nonce as
// keccak256(abi.encode(payer, payee, value, nowMillis)). Two authorizations
// for the same transfer at distinct millisecond timestamps produce distinct
// nonces.
func ComputeNonce(payer, payee string, value *big.Int, now time.Time) ([32]byte, error) {
	var nonce [32]byte

	if !common.IsHexAddress(payer) {
		return nonce, fmt.Errorf("invalid payer address: %s", payer)
	}
	if !common.IsHexAddress(payee) {
		return nonce, fmt.Errorf("invalid payee address: %s", payee)
	}

	packed, err := nonceArguments.Pack(
		common.HexToAddress(payer),
		common.HexToAddress(payee),
		value,
		big.NewInt(now.UnixMilli()),
	)
	if err != nil {
		return nonce, fmt.Errorf("failed to encode nonce preimage: %w", err)
	}

	copy(nonce[:], crypto.Keccak256(packed))
	return nonce, nil
}

// ParseTokenAmount converts a human-readable decimal amount (e.g. "0.10")
// into the token's smallest unit at the given number of decimals.
func ParseTokenAmount(amount string, decimals int) (*big.Int, error) {
	if amount == "" {
		return nil, fmt.Errorf("empty amount")
	}

	whole, frac := amount, ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %s exceeds %d decimals", amount, decimals)
	}
	frac += strings.Repeat("0", decimals-len(frac))

	value, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount: %s", amount)
	}
	return value, nil
}
