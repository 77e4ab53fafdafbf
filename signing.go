package x402

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// PrimaryTypeTransferWithAuthorization is the EIP-712 primary type signed
// for an EIP-3009 payment.
const PrimaryTypeTransferWithAuthorization = "TransferWithAuthorization"

// TransferWithAuthorizationTypes defines the EIP-712 type schema for
// TransferWithAuthorization. Field order matches the on-chain contract.
var TransferWithAuthorizationTypes = map[string][]TypedDataField{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"TransferWithAuthorization": {
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "validAfter", Type: "uint256"},
		{Name: "validBefore", Type: "uint256"},
		{Name: "nonce", Type: "bytes32"},
	},
}

// Signer is the external signing capability bound to the caller's context,
// typically the user's wallet. SignTypedData may suspend indefinitely
// awaiting out-of-band approval; it must honor ctx cancellation.
type Signer interface {
	// Address returns the signer's Ethereum address
	Address() string

	// SignTypedData signs EIP-712 typed data
	SignTypedData(ctx context.Context, domain TypedDataDomain, types map[string][]TypedDataField, primaryType string, message map[string]interface{}) ([]byte, error)
}

// TypedDataForAuthorization builds the EIP-712 payload for a transfer
// authorization: the domain separates signatures by token name, version,
// chain, and verifying contract.
func TypedDataForAuthorization(
	auth TransferAuthorization,
	chainID *big.Int,
	verifyingContract string,
	tokenName string,
	tokenVersion string,
) (TypedDataDomain, map[string][]TypedDataField, map[string]interface{}) {
	domain := TypedDataDomain{
		Name:              tokenName,
		Version:           tokenVersion,
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}

	message := map[string]interface{}{
		"from":        auth.From,
		"to":          auth.To,
		"value":       auth.Value,
		"validAfter":  big.NewInt(auth.ValidAfter),
		"validBefore": big.NewInt(auth.ValidBefore),
		"nonce":       auth.Nonce[:],
	}

	return domain, TransferWithAuthorizationTypes, message
}

// SignAuthorization hands the authorization to the signer and wraps the
// outcome in the protocol's error model. A nil signer means no signing
// capability is attached to the caller's context. No retry is attempted:
// a rejected signature must be re-initiated as a brand-new attempt with a
// fresh nonce and timestamp.
func SignAuthorization(
	ctx context.Context,
	signer Signer,
	auth TransferAuthorization,
	chainID *big.Int,
	verifyingContract string,
	tokenName string,
	tokenVersion string,
) (*SignedAuthorization, error) {
	if signer == nil {
		return nil, NewPaymentError(ErrCodeSignerUnavailable, "no signing capability attached", nil)
	}

	domain, types, message := TypedDataForAuthorization(auth, chainID, verifyingContract, tokenName, tokenVersion)

	signature, err := signer.SignTypedData(ctx, domain, types, PrimaryTypeTransferWithAuthorization, message)
	if err != nil {
		return nil, NewPaymentError(ErrCodeSignerRejected,
			fmt.Sprintf("signing failed: %v", err),
			map[string]interface{}{"signer": signer.Address()})
	}

	return &SignedAuthorization{
		Authorization: auth,
		Signature:     signature,
	}, nil
}

// HashTypedData hashes EIP-712 typed data according to the specification.
// The hash is computed as keccak256("\x19\x01" + domainSeparator + structHash)
// and is the digest a signer signs or a verifier recovers against.
func HashTypedData(
	domain TypedDataDomain,
	types map[string][]TypedDataField,
	primaryType string,
	message map[string]interface{},
) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types:       make(apitypes.Types),
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(domain.ChainID),
			VerifyingContract: domain.VerifyingContract,
		},
		Message: message,
	}

	for typeName, fields := range types {
		typedFields := make([]apitypes.Type, len(fields))
		for i, field := range fields {
			typedFields[i] = apitypes.Type{
				Name: field.Name,
				Type: field.Type,
			}
		}
		typedData.Types[typeName] = typedFields
	}

	if _, exists := typedData.Types["EIP712Domain"]; !exists {
		typedData.Types["EIP712Domain"] = []apitypes.Type{
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		}
	}

	dataHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash struct: %w", err)
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	// EIP-712 digest: 0x19 0x01 <domainSeparator> <dataHash>
	rawData := []byte{0x19, 0x01}
	rawData = append(rawData, domainSeparator...)
	rawData = append(rawData, dataHash...)
	digest := crypto.Keccak256(rawData)

	return digest, nil
}
