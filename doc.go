// Package x402 implements the client side of the x402 micropayment
// protocol used by the X402-Market agent marketplace: negotiating a
// 402 Payment Required challenge, building and signing an EIP-3009
// TransferWithAuthorization message, encoding it into the X-PAYMENT
// header, and caching successful payment proofs so a resource is not
// paid for twice within the proof's validity window.
//
// The signing capability (the user's wallet) and the payment cache are
// both injected; the package performs no silent recovery and no
// automatic retries. Every failure surfaces as a *PaymentError so the
// caller decides whether to start a fresh attempt.
package x402
