package x402

import "math/big"

// PaymentChallenge is the body of a 402 Payment Required response from a
// protected resource. It lives for one negotiation attempt and is never
// persisted.
type PaymentChallenge struct {
	MaxAmountRequired string `json:"maxAmountRequired"` // decimal string, asset-denominated (e.g. "0.10")
	Resource          string `json:"resource"`          // opaque resource identifier, typically a path
	Description       string `json:"description"`
	PayTo             string `json:"payTo"`   // payee address (hex)
	Asset             string `json:"asset"`   // token contract address (hex)
	Network           string `json:"network"` // network identifier (e.g. "base-sepolia")
}

// TransferAuthorization is the EIP-3009 TransferWithAuthorization message
// to be signed. Value is in the smallest asset unit; ValidAfter and
// ValidBefore are Unix seconds with ValidAfter < ValidBefore.
type TransferAuthorization struct {
	From        string
	To          string
	Value       *big.Int
	ValidAfter  int64
	ValidBefore int64
	Nonce       [32]byte
}

// SignedAuthorization is a TransferAuthorization plus the EIP-712
// signature produced over it. Created once per attempt and discarded
// after the payment header is built; never cached.
type SignedAuthorization struct {
	Authorization TransferAuthorization
	Signature     []byte // 65 bytes (r, s, v)
}

// PaymentProof is the artifact persisted after a successful payment.
// WalletAddress repeats the payer in lower-case form for equality checks,
// mirroring the cache key.
type PaymentProof struct {
	Resource      string `json:"resource"`
	From          string `json:"from"`
	To            string `json:"to"`
	Value         string `json:"value"`
	Signature     string `json:"signature"`
	Nonce         string `json:"nonce"`
	Timestamp     int64  `json:"timestamp"` // creation time, Unix milliseconds
	WalletAddress string `json:"walletAddress"`
}

// PaymentResult is the outcome of a successful Pay call.
// Proof is nil when the resource was accessible without payment.
// Cached is true when an unexpired proof satisfied the request and no
// negotiation, signing, or submission took place.
type PaymentResult struct {
	PaymentID string
	Proof     *PaymentProof
	Cached    bool
}

// TypedDataDomain represents the EIP-712 domain separator
type TypedDataDomain struct {
	Name              string   `json:"name"`
	Version           string   `json:"version"`
	ChainID           *big.Int `json:"chainId"`
	VerifyingContract string   `json:"verifyingContract"`
}

// TypedDataField represents a field in EIP-712 typed data
type TypedDataField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
