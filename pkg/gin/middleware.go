// Package gin provides a payment middleware for the gin framework that
// gates routes behind the 402-then-200 contract: unauthenticated requests
// receive a payment challenge, and requests carrying a well-formed
// X-PAYMENT header are let through.
package gin

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	x402 "github.com/ayushsingh82/x402-market"
)

// ContextKeyPayment is the gin context key under which the accepted
// payment's signed authorization is stored for downstream handlers.
const ContextKeyPayment = "x402_payment"

// Verifier validates an accepted payment beyond well-formedness, e.g. by
// consulting a facilitator. Returning an error re-challenges the client.
type Verifier func(c *gin.Context, signed *x402.SignedAuthorization) error

// PaymentMiddlewareOptions is the options for the PaymentMiddleware.
type PaymentMiddlewareOptions struct {
	Description string
	Resource    string
	Network     string
	Asset       string
	Verifier    Verifier
}

// Options is the type for the options for the PaymentMiddleware.
type Options func(*PaymentMiddlewareOptions)

// WithDescription is an option for the PaymentMiddleware to set the
// human-readable challenge description.
func WithDescription(description string) Options {
	return func(options *PaymentMiddlewareOptions) {
		options.Description = description
	}
}

// WithResource is an option for the PaymentMiddleware to override the
// resource identifier advertised in the challenge. Defaults to the
// request path.
func WithResource(resource string) Options {
	return func(options *PaymentMiddlewareOptions) {
		options.Resource = resource
	}
}

// WithNetwork is an option for the PaymentMiddleware to set the network
// identifier. Defaults to base-sepolia.
func WithNetwork(network string) Options {
	return func(options *PaymentMiddlewareOptions) {
		options.Network = network
	}
}

// WithAsset is an option for the PaymentMiddleware to set the asset
// contract address. Defaults to the network's default asset.
func WithAsset(asset string) Options {
	return func(options *PaymentMiddlewareOptions) {
		options.Asset = asset
	}
}

// WithVerifier is an option for the PaymentMiddleware to plug a payment
// verifier behind the well-formedness check.
func WithVerifier(verifier Verifier) Options {
	return func(options *PaymentMiddlewareOptions) {
		options.Verifier = verifier
	}
}

// PaymentMiddleware gates a route behind a payment of price (decimal
// string, asset-denominated) to payTo. Without an X-PAYMENT header it
// responds 402 with a PaymentChallenge body; with a well-formed header it
// stores the authorization in the context and passes through; with a
// malformed header it responds 400.
//
// Only well-formedness is enforced here. On-chain verification belongs to
// a Verifier supplied via WithVerifier.
func PaymentMiddleware(price, payTo string, opts ...Options) gin.HandlerFunc {
	options := &PaymentMiddlewareOptions{
		Network: "base-sepolia",
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.Asset == "" {
		if config, err := x402.GetNetworkConfig(options.Network); err == nil {
			options.Asset = config.DefaultAsset.Address
		}
	}

	return func(c *gin.Context) {
		headerValue := c.GetHeader(x402.PaymentHeaderName)
		if headerValue == "" {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, challengeFor(c, price, payTo, options))
			return
		}

		signed, err := wellFormed(headerValue)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "Payment verification failed",
			})
			return
		}

		if options.Verifier != nil {
			if err := options.Verifier(c, signed); err != nil {
				c.AbortWithStatusJSON(http.StatusPaymentRequired, challengeFor(c, price, payTo, options))
				return
			}
		}

		c.Set(ContextKeyPayment, signed)
		c.Next()
	}
}

func challengeFor(c *gin.Context, price, payTo string, options *PaymentMiddlewareOptions) x402.PaymentChallenge {
	resource := options.Resource
	if resource == "" {
		resource = c.Request.URL.Path
	}
	description := options.Description
	if description == "" {
		description = "Access to " + resource + " requires payment"
	}
	return x402.PaymentChallenge{
		MaxAmountRequired: price,
		Resource:          resource,
		Description:       description,
		PayTo:             payTo,
		Asset:             options.Asset,
		Network:           options.Network,
	}
}

func wellFormed(headerValue string) (*x402.SignedAuthorization, error) {
	header, err := x402.DecodePaymentHeader(headerValue)
	if err != nil {
		return nil, err
	}
	signed, err := header.Authorization()
	if err != nil {
		return nil, err
	}
	if signed.Authorization.ValidBefore <= time.Now().Unix() {
		return nil, fmt.Errorf("authorization window expired")
	}
	return signed, nil
}
