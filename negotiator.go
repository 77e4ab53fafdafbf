package x402

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// challengeSchemaJSON validates the body of a 402 response before it is
// accepted as a PaymentChallenge.
const challengeSchemaJSON = `{
	"type": "object",
	"required": ["maxAmountRequired", "resource", "payTo", "asset", "network"],
	"properties": {
		"maxAmountRequired": {"type": "string", "minLength": 1},
		"resource": {"type": "string", "minLength": 1},
		"description": {"type": "string"},
		"payTo": {"type": "string", "pattern": "^0x[0-9a-fA-F]{40}$"},
		"asset": {"type": "string", "pattern": "^0x[0-9a-fA-F]{40}$"},
		"network": {"type": "string", "minLength": 1}
	}
}`

var challengeSchema = gojsonschema.NewStringLoader(challengeSchemaJSON)

// ChallengeNegotiator issues requests to a protected resource and
// interprets the 402-then-200 contract. It imposes no timeout of its own;
// callers needing bounded latency cancel through ctx.
type ChallengeNegotiator struct {
	httpClient *http.Client
}

// NewChallengeNegotiator creates a negotiator using the given HTTP client,
// or http.DefaultClient if nil.
func NewChallengeNegotiator(client *http.Client) *ChallengeNegotiator {
	if client == nil {
		client = http.DefaultClient
	}
	return &ChallengeNegotiator{httpClient: client}
}

// RequestPaymentDetails issues the initial unauthenticated request to the
// resource. A 402 response yields the parsed PaymentChallenge; a 2xx means
// the resource is already accessible and returns (nil, nil); any other
// status is an unexpected_status error carrying the code.
func (n *ChallengeNegotiator) RequestPaymentDetails(ctx context.Context, resourceURL string) (*PaymentChallenge, error) {
	resp, err := n.get(ctx, resourceURL, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, NewPaymentError(ErrCodeNetwork,
				fmt.Sprintf("failed to read challenge body: %v", err), nil)
		}
		return parseChallenge(body)

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Resource is already accessible.
		return nil, nil

	default:
		return nil, NewPaymentError(ErrCodeUnexpectedStatus,
			fmt.Sprintf("unexpected status: %d", resp.StatusCode),
			map[string]interface{}{"status": resp.StatusCode})
	}
}

// SubmitWithPayment resends the request with the payment header attached.
// A 2xx status is a protocol success; any other status is a
// payment_rejected error carrying the server's response body as diagnostic
// detail.
func (n *ChallengeNegotiator) SubmitWithPayment(ctx context.Context, resourceURL, headerValue string) error {
	resp, err := n.get(ctx, resourceURL, headerValue)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	return NewPaymentError(ErrCodePaymentRejected,
		fmt.Sprintf("payment failed: %d - %s", resp.StatusCode, strings.TrimSpace(string(body))),
		map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(body),
		})
}

func (n *ChallengeNegotiator) get(ctx context.Context, resourceURL, paymentHeader string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return nil, NewPaymentError(ErrCodeNetwork,
			fmt.Sprintf("invalid resource url: %v", err), nil)
	}
	req.Header.Set("Accept", "application/json")
	if paymentHeader != "" {
		req.Header.Set(PaymentHeaderName, paymentHeader)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, NewPaymentError(ErrCodeNetwork,
			fmt.Sprintf("request failed: %v", err), nil)
	}
	return resp, nil
}

func parseChallenge(body []byte) (*PaymentChallenge, error) {
	result, err := gojsonschema.Validate(challengeSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, NewPaymentError(ErrCodeMalformedChallenge,
			fmt.Sprintf("challenge body is not valid JSON: %v", err), nil)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, NewPaymentError(ErrCodeMalformedChallenge,
			"challenge body failed validation",
			map[string]interface{}{"errors": details})
	}

	var challenge PaymentChallenge
	if err := json.Unmarshal(body, &challenge); err != nil {
		return nil, NewPaymentError(ErrCodeMalformedChallenge,
			fmt.Sprintf("failed to parse challenge: %v", err), nil)
	}
	return &challenge, nil
}
