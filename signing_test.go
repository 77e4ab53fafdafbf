package x402

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSigner records the typed data it is asked to sign.
type fakeSigner struct {
	address     string
	signature   []byte
	err         error
	domain      TypedDataDomain
	primaryType string
	message     map[string]interface{}
}

func (s *fakeSigner) Address() string { return s.address }

func (s *fakeSigner) SignTypedData(ctx context.Context, domain TypedDataDomain, types map[string][]TypedDataField, primaryType string, message map[string]interface{}) ([]byte, error) {
	s.domain = domain
	s.primaryType = primaryType
	s.message = message
	if s.err != nil {
		return nil, s.err
	}
	return s.signature, nil
}

func authFixture(t *testing.T) TransferAuthorization {
	t.Helper()
	auth, err := BuildAuthorization(testPayer, testPayee, big.NewInt(100000), time.Unix(1700000000, 0))
	require.NoError(t, err)
	return auth
}

func TestSignAuthorization(t *testing.T) {
	auth := authFixture(t)
	signer := &fakeSigner{address: testPayer, signature: make([]byte, 65)}

	signed, err := SignAuthorization(context.Background(), signer, auth,
		ChainIDBaseSepolia, "0x036CbD53842c5426634e7929541eC2318f3dCF7e", "USD Coin", "2")
	require.NoError(t, err)
	assert.Equal(t, auth, signed.Authorization)
	assert.Len(t, signed.Signature, 65)

	// Domain separates by token name, version, chain, and contract.
	assert.Equal(t, "USD Coin", signer.domain.Name)
	assert.Equal(t, "2", signer.domain.Version)
	assert.Zero(t, ChainIDBaseSepolia.Cmp(signer.domain.ChainID))
	assert.Equal(t, "0x036CbD53842c5426634e7929541eC2318f3dCF7e", signer.domain.VerifyingContract)

	// Message carries the six TransferWithAuthorization fields.
	assert.Equal(t, PrimaryTypeTransferWithAuthorization, signer.primaryType)
	assert.Equal(t, auth.From, signer.message["from"])
	assert.Equal(t, auth.To, signer.message["to"])
	assert.Equal(t, auth.Value, signer.message["value"])
	assert.Equal(t, auth.Nonce[:], signer.message["nonce"])
}

func TestSignAuthorization_NoSigner(t *testing.T) {
	auth := authFixture(t)

	_, err := SignAuthorization(context.Background(), nil, auth,
		ChainIDBaseSepolia, "0x036CbD53842c5426634e7929541eC2318f3dCF7e", "USD Coin", "2")
	assert.True(t, IsCode(err, ErrCodeSignerUnavailable), "got %v", err)
}

func TestSignAuthorization_Rejected(t *testing.T) {
	auth := authFixture(t)
	signer := &fakeSigner{address: testPayer, err: errors.New("user denied signature")}

	_, err := SignAuthorization(context.Background(), signer, auth,
		ChainIDBaseSepolia, "0x036CbD53842c5426634e7929541eC2318f3dCF7e", "USD Coin", "2")
	assert.True(t, IsCode(err, ErrCodeSignerRejected), "got %v", err)
}

func TestHashTypedData(t *testing.T) {
	auth := authFixture(t)
	domain, types, message := TypedDataForAuthorization(auth,
		ChainIDBaseSepolia, "0x036CbD53842c5426634e7929541eC2318f3dCF7e", "USD Coin", "2")

	hash, err := HashTypedData(domain, types, PrimaryTypeTransferWithAuthorization, message)
	require.NoError(t, err)
	assert.Len(t, hash, 32)

	t.Run("same inputs produce same hash", func(t *testing.T) {
		again, err := HashTypedData(domain, types, PrimaryTypeTransferWithAuthorization, message)
		require.NoError(t, err)
		assert.Equal(t, hash, again)
	})

	t.Run("different chain ID produces different hash", func(t *testing.T) {
		otherDomain := domain
		otherDomain.ChainID = ChainIDBase
		other, err := HashTypedData(otherDomain, types, PrimaryTypeTransferWithAuthorization, message)
		require.NoError(t, err)
		assert.NotEqual(t, hash, other)
	})

	t.Run("different verifying contract produces different hash", func(t *testing.T) {
		otherDomain := domain
		otherDomain.VerifyingContract = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
		other, err := HashTypedData(otherDomain, types, PrimaryTypeTransferWithAuthorization, message)
		require.NoError(t, err)
		assert.NotEqual(t, hash, other)
	})
}
