package x402

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
)

// Client drives the payment protocol end to end: cache check, challenge
// negotiation, authorization building, signing, header encoding, and
// resubmission. Steps execute strictly in that order within one Pay call.
type Client struct {
	negotiator *ChallengeNegotiator
	signer     Signer
	cache      PaymentCache
	now        func() time.Time
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for negotiation requests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.negotiator = NewChallengeNegotiator(httpClient)
	}
}

// WithSigner attaches the signing capability used to authorize transfers.
func WithSigner(signer Signer) ClientOption {
	return func(c *Client) {
		c.signer = signer
	}
}

// WithCache sets the payment proof cache. Defaults to an in-memory cache
// with a one hour TTL.
func WithCache(cache PaymentCache) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a payment client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		negotiator: NewChallengeNegotiator(nil),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		cache := NewMemoryCache(DefaultProofTTL)
		cache.now = c.now
		c.cache = cache
	}
	return c
}

// NewPaymentID generates an identifier for one payment attempt.
func NewPaymentID() string {
	return "pay_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Pay executes one payment attempt against resourceURL. The payer is the
// bound signer's address. amount is in the asset's smallest unit; if nil,
// the amount is taken from the challenge's maxAmountRequired. payee may be
// empty, in which case the challenge's payTo address is used.
//
// A valid unexpired cached proof short-circuits the whole pipeline and is
// returned with Cached set. A 2xx on the first request returns success with
// no proof and writes nothing. Protocol failures are *PaymentError values;
// nothing is cached on failure, and a cancelled attempt never leaves a cache
// write. Concurrent Pay calls for the same (resource, payer) may each
// negotiate and sign; the last successful write wins.
func (c *Client) Pay(ctx context.Context, resourceURL, payee string, amount *big.Int) (*PaymentResult, error) {
	paymentID := NewPaymentID()

	var payer string
	if c.signer != nil {
		payer = c.signer.Address()
	}

	// Step 1: an existing unexpired proof means no new payment.
	if payer != "" {
		if proof, ok := c.cache.Get(resourceURL, payer); ok {
			return &PaymentResult{PaymentID: paymentID, Proof: proof, Cached: true}, nil
		}
	}

	// Step 2: negotiate. A nil challenge means the resource is open.
	challenge, err := c.negotiator.RequestPaymentDetails(ctx, resourceURL)
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return &PaymentResult{PaymentID: paymentID}, nil
	}

	if c.signer == nil {
		return nil, NewPaymentError(ErrCodeSignerUnavailable, "no signing capability attached", nil)
	}

	config, err := GetNetworkConfig(challenge.Network)
	if err != nil {
		return nil, err
	}

	if payee == "" {
		payee = challenge.PayTo
	}
	if amount == nil {
		amount, err = ParseTokenAmount(challenge.MaxAmountRequired, config.DefaultAsset.Decimals)
		if err != nil {
			return nil, NewPaymentError(ErrCodeMalformedChallenge,
				"challenge maxAmountRequired is not a valid amount",
				map[string]interface{}{"maxAmountRequired": challenge.MaxAmountRequired})
		}
	}

	// Step 3: build the time-bounded, replay-resistant authorization.
	auth, err := BuildAuthorization(payer, payee, amount, c.now())
	if err != nil {
		return nil, fmt.Errorf("failed to build authorization: %w", err)
	}

	// Step 4: sign. No fallback, no retry.
	signed, err := SignAuthorization(ctx, c.signer, auth, config.ChainID, challenge.Asset, config.TokenName, config.TokenVersion)
	if err != nil {
		return nil, err
	}

	// Step 5: encode the header.
	headerValue, err := EncodePaymentHeader(signed)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment header: %w", err)
	}

	// Step 6: resubmit with payment and record the proof on success.
	if err := c.negotiator.SubmitWithPayment(ctx, resourceURL, headerValue); err != nil {
		return nil, err
	}

	proof := c.buildProof(resourceURL, payer, signed)
	c.cache.Put(resourceURL, payer, proof)

	return &PaymentResult{PaymentID: paymentID, Proof: proof}, nil
}

// HasPaid reports whether an unexpired proof exists for (resource, payer).
func (c *Client) HasPaid(resource, payer string) bool {
	return c.cache.Has(resource, payer)
}

// Forget drops any cached proof for (resource, payer), forcing the next
// Pay call to negotiate again.
func (c *Client) Forget(resource, payer string) {
	c.cache.Delete(resource, payer)
}

func (c *Client) buildProof(resource, payer string, signed *SignedAuthorization) *PaymentProof {
	auth := signed.Authorization
	return &PaymentProof{
		Resource:      resource,
		From:          auth.From,
		To:            auth.To,
		Value:         auth.Value.String(),
		Signature:     hexutil.Encode(signed.Signature),
		Nonce:         hexutil.Encode(auth.Nonce[:]),
		Timestamp:     c.now().UnixMilli(),
		WalletAddress: strings.ToLower(payer),
	}
}
