package x402

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// PaymentHeaderName is the request header carrying the signed authorization.
const PaymentHeaderName = "X-PAYMENT"

// PaymentHeader is the wire form of a signed authorization. Numeric fields
// are decimal-string integers to avoid precision loss; nonce and signature
// are 0x-prefixed hex. The value is opaque to the transport and is only
// interpreted by the resource server and its facilitator.
type PaymentHeader struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
	Signature   string `json:"signature"`
}

// EncodePaymentHeader serializes a signed authorization into the X-PAYMENT
// header value.
func EncodePaymentHeader(signed *SignedAuthorization) (string, error) {
	auth := signed.Authorization
	if auth.Value == nil {
		return "", fmt.Errorf("authorization value is required")
	}

	header := PaymentHeader{
		From:        auth.From,
		To:          auth.To,
		Value:       auth.Value.String(),
		ValidAfter:  fmt.Sprintf("%d", auth.ValidAfter),
		ValidBefore: fmt.Sprintf("%d", auth.ValidBefore),
		Nonce:       hexutil.Encode(auth.Nonce[:]),
		Signature:   hexutil.Encode(signed.Signature),
	}

	data, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment header: %w", err)
	}
	return string(data), nil
}

// DecodePaymentHeader parses an X-PAYMENT header value.
func DecodePaymentHeader(value string) (*PaymentHeader, error) {
	var header PaymentHeader
	if err := json.Unmarshal([]byte(value), &header); err != nil {
		return nil, fmt.Errorf("invalid payment header JSON: %w", err)
	}
	return &header, nil
}

// Authorization converts the wire form back into a typed signed
// authorization, validating every field. This is the well-formedness check
// a resource server applies before consulting its facilitator.
func (h *PaymentHeader) Authorization() (*SignedAuthorization, error) {
	if !common.IsHexAddress(h.From) {
		return nil, fmt.Errorf("invalid from address: %s", h.From)
	}
	if !common.IsHexAddress(h.To) {
		return nil, fmt.Errorf("invalid to address: %s", h.To)
	}

	value, ok := new(big.Int).SetString(h.Value, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid value: %s", h.Value)
	}

	validAfter, ok := new(big.Int).SetString(h.ValidAfter, 10)
	if !ok || !validAfter.IsInt64() {
		return nil, fmt.Errorf("invalid validAfter: %s", h.ValidAfter)
	}
	validBefore, ok := new(big.Int).SetString(h.ValidBefore, 10)
	if !ok || !validBefore.IsInt64() {
		return nil, fmt.Errorf("invalid validBefore: %s", h.ValidBefore)
	}
	if validAfter.Int64() >= validBefore.Int64() {
		return nil, fmt.Errorf("validAfter %s is not before validBefore %s", h.ValidAfter, h.ValidBefore)
	}

	nonceBytes, err := hexutil.Decode(h.Nonce)
	if err != nil {
		return nil, fmt.Errorf("invalid nonce: %w", err)
	}
	if len(nonceBytes) != 32 {
		return nil, fmt.Errorf("nonce must be 32 bytes, got %d", len(nonceBytes))
	}

	signature, err := hexutil.Decode(h.Signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}
	if len(signature) != 65 {
		return nil, fmt.Errorf("signature must be 65 bytes, got %d", len(signature))
	}

	signed := &SignedAuthorization{
		Authorization: TransferAuthorization{
			From:        common.HexToAddress(h.From).Hex(),
			To:          common.HexToAddress(h.To).Hex(),
			Value:       value,
			ValidAfter:  validAfter.Int64(),
			ValidBefore: validBefore.Int64(),
		},
		Signature: signature,
	}
	copy(signed.Authorization.Nonce[:], nonceBytes)
	return signed, nil
}
