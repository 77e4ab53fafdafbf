package x402

import (
	"math/big"
	"testing"
	"time"
)

const (
	testPayer = "0x1234567890123456789012345678901234567890"
	testPayee = "0x9876543210987654321098765432109876543210"
)

func TestBuildAuthorization(t *testing.T) {
	now := time.Unix(1700000000, 0)
	value := big.NewInt(100000)

	auth, err := BuildAuthorization(testPayer, testPayee, value, now)
	if err != nil {
		t.Fatalf("BuildAuthorization failed: %v", err)
	}

	if auth.ValidAfter != 0 {
		t.Errorf("Expected validAfter 0, got %d", auth.ValidAfter)
	}
	if auth.ValidBefore != now.Unix()+3600 {
		t.Errorf("Expected validBefore now+3600, got %d", auth.ValidBefore)
	}
	if auth.ValidAfter >= auth.ValidBefore {
		t.Error("Expected validAfter < validBefore")
	}
	if auth.Value.Cmp(value) != 0 {
		t.Errorf("Expected value %s, got %s", value, auth.Value)
	}
	if auth.Nonce == ([32]byte{}) {
		t.Error("Expected non-zero nonce")
	}
}

func TestBuildAuthorization_InvalidInputs(t *testing.T) {
	now := time.Now()

	if _, err := BuildAuthorization(testPayer, testPayee, nil, now); err == nil {
		t.Error("Expected error for nil value")
	}
	if _, err := BuildAuthorization(testPayer, testPayee, big.NewInt(-1), now); err == nil {
		t.Error("Expected error for negative value")
	}
	if _, err := BuildAuthorization("not-an-address", testPayee, big.NewInt(1), now); err == nil {
		t.Error("Expected error for invalid payer")
	}
	if _, err := BuildAuthorization(testPayer, "not-an-address", big.NewInt(1), now); err == nil {
		t.Error("Expected error for invalid payee")
	}
}

func TestComputeNonce_Deterministic(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	value := big.NewInt(100000)

	nonce1, err1 := ComputeNonce(testPayer, testPayee, value, now)
	nonce2, err2 := ComputeNonce(testPayer, testPayee, value, now)
	if err1 != nil || err2 != nil {
		t.Fatalf("ComputeNonce failed: %v, %v", err1, err2)
	}
	if nonce1 != nonce2 {
		t.Error("Same inputs should produce the same nonce")
	}
}

func TestComputeNonce_Uniqueness(t *testing.T) {
	// Distinct millisecond timestamps for a fixed (payer, payee, amount)
	// must never collide.
	value := big.NewInt(100000)
	base := time.UnixMilli(1700000000000)

	seen := make(map[[32]byte]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		nonce, err := ComputeNonce(testPayer, testPayee, value, base.Add(time.Duration(i)*time.Millisecond))
		if err != nil {
			t.Fatalf("ComputeNonce failed at %d: %v", i, err)
		}
		if _, dup := seen[nonce]; dup {
			t.Fatalf("Duplicate nonce at timestamp offset %dms", i)
		}
		seen[nonce] = struct{}{}
	}

	if len(seen) != 10000 {
		t.Errorf("Expected 10000 distinct nonces, got %d", len(seen))
	}
}

func TestComputeNonce_VariesByParty(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	value := big.NewInt(100000)

	base, _ := ComputeNonce(testPayer, testPayee, value, now)
	otherPayee, _ := ComputeNonce(testPayer, testPayer, value, now)
	otherValue, _ := ComputeNonce(testPayer, testPayee, big.NewInt(100001), now)

	if base == otherPayee {
		t.Error("Different payee should produce a different nonce")
	}
	if base == otherValue {
		t.Error("Different value should produce a different nonce")
	}
}

func TestParseTokenAmount(t *testing.T) {
	cases := []struct {
		in       string
		decimals int
		want     string
		wantErr  bool
	}{
		{"0.10", 6, "100000", false},
		{"1", 6, "1000000", false},
		{"0.000001", 6, "1", false},
		{"12.5", 6, "12500000", false},
		{".5", 6, "500000", false},
		{"0.1234567", 6, "", true},
		{"", 6, "", true},
		{"abc", 6, "", true},
		{"-1", 6, "", true},
		{"1.2.3", 6, "", true},
	}

	for _, tc := range cases {
		got, err := ParseTokenAmount(tc.in, tc.decimals)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTokenAmount(%q): expected error, got %s", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTokenAmount(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got.String() != tc.want {
			t.Errorf("ParseTokenAmount(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
