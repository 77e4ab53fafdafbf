// Package evm provides a private-key implementation of the x402 Signer
// interface for EVM networks.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	x402 "github.com/ayushsingh82/x402-market"
)

// ClientSigner implements x402.Signer using an ECDSA private key.
// This provides client-side EIP-712 signing for creating payment headers.
type ClientSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewClientSignerFromPrivateKey creates a client signer from a hex-encoded
// private key (with or without "0x" prefix).
func NewClientSignerFromPrivateKey(privateKeyHex string) (*ClientSigner, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &ClientSigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// Address returns the Ethereum address of the signer.
func (s *ClientSigner) Address() string {
	return s.address.Hex()
}

// SignTypedData signs EIP-712 typed data and returns a 65-byte (r, s, v)
// signature. Cancellation is checked before the key is touched; a local
// key never suspends, unlike a wallet-backed signer.
func (s *ClientSigner) SignTypedData(
	ctx context.Context,
	domain x402.TypedDataDomain,
	types map[string][]x402.TypedDataField,
	primaryType string,
	message map[string]interface{},
) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	digest, err := x402.HashTypedData(domain, types, primaryType, message)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	// Adjust v value for Ethereum (recovery ID 0/1 → 27/28)
	signature[64] += 27

	return signature, nil
}
