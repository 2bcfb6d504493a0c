package tokens

import (
	"bytes"
	"crypto/ed25519"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 5, 10, 9, 30, 0, 0, time.UTC)

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time          { return c.now }
func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestIssuer(t *testing.T) (*Issuer, *manualClock) {
	t.Helper()

	signer, err := NewHMACSigner([]byte("test-jwt-secret"))
	require.NoError(t, err)

	clk := &manualClock{now: testNow}
	return NewIssuer(signer, IssuerConfig{
		Issuer:     "account-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}, clk, nil), clk
}

func testSubject() Subject {
	return Subject{
		ID:          uuid.New(),
		Role:        "admin",
		Permissions: []string{"users.view", "reports.view"},
	}
}

func TestIssuer_AccessToken_CarriesIdentity(t *testing.T) {
	t.Parallel()

	iss, _ := newTestIssuer(t)
	sub := testSubject()

	token, exp, err := iss.IssueAccessToken(sub)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(15*time.Minute), exp)

	claims, ok := iss.VerifyAccessToken(token)
	require.True(t, ok)
	assert.Equal(t, sub.ID.String(), claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, []string{"users.view", "reports.view"}, claims.Permissions)
	assert.Equal(t, "account-test", claims.Issuer)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, sub.ID, id)
}

func TestIssuer_AccessToken_RequiresSubjectID(t *testing.T) {
	t.Parallel()

	iss, _ := newTestIssuer(t)
	_, _, err := iss.IssueAccessToken(Subject{Role: "user"})
	require.Error(t, err)
}

func TestIssuer_VerifyAccessToken_Rejects(t *testing.T) {
	t.Parallel()

	iss, clk := newTestIssuer(t)
	token, _, err := iss.IssueAccessToken(testSubject())
	require.NoError(t, err)

	other, err := NewHMACSigner([]byte("another-secret"))
	require.NoError(t, err)
	foreign := NewIssuer(other, IssuerConfig{Issuer: "account-test"}, clk, nil)
	foreignToken, _, err := foreign.IssueAccessToken(testSubject())
	require.NoError(t, err)

	wrongIss := NewIssuer(iss.signer, IssuerConfig{Issuer: "someone-else"}, clk, nil)
	wrongIssToken, _, err := wrongIss.IssueAccessToken(testSubject())
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    "account-test",
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExp, err := iss.signer.Sign(AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString(), Issuer: "account-test"},
	})
	require.NoError(t, err)

	badSubject, err := iss.signer.Sign(AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			Issuer:    "account-test",
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
		},
	})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "tampered payload", token: tampered},
		{name: "foreign secret", token: foreignToken},
		{name: "wrong issuer", token: wrongIssToken},
		{name: "alg none", token: noneToken},
		{name: "missing expiry", token: noExp},
		{name: "subject not uuid", token: badSubject},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			claims, ok := iss.VerifyAccessToken(tt.token)
			assert.False(t, ok)
			assert.Nil(t, claims)
		})
	}
}

func TestIssuer_VerifyAccessToken_Expired(t *testing.T) {
	t.Parallel()

	iss, clk := newTestIssuer(t)
	token, _, err := iss.IssueAccessToken(testSubject())
	require.NoError(t, err)

	clk.Advance(14 * time.Minute)
	_, ok := iss.VerifyAccessToken(token)
	assert.True(t, ok)

	clk.Advance(time.Minute)
	_, ok = iss.VerifyAccessToken(token)
	assert.False(t, ok)
}

func TestIssuer_RefreshToken(t *testing.T) {
	t.Parallel()

	iss, _ := newTestIssuer(t)

	plain, rt, err := iss.IssueRefreshToken()
	require.NoError(t, err)

	raw, err := decodeRaw(plain)
	require.NoError(t, err)
	assert.Len(t, raw, MinOpaqueBytes)

	assert.Equal(t, Digest(plain), rt.Digest)
	assert.NotEqual(t, plain, rt.Digest)
	assert.Equal(t, testNow, rt.IssuedAt)
	assert.Equal(t, testNow.Add(7*24*time.Hour), rt.ExpiresAt)

	plain2, _, err := iss.IssueRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, plain, plain2)
}

func TestIssuer_RefreshToken_RandomFailure(t *testing.T) {
	t.Parallel()

	signer, err := NewHMACSigner([]byte("s"))
	require.NoError(t, err)
	iss := NewIssuer(signer, IssuerConfig{}, nil, bytes.NewReader([]byte("short")))

	_, _, err = iss.IssueRefreshToken()
	require.Error(t, err)
}

func TestEd25519Signer_RoundTrip(t *testing.T) {
	t.Parallel()

	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signer, err := NewEd25519Signer(priv)
	require.NoError(t, err)

	clk := &manualClock{now: testNow}
	iss := NewIssuer(signer, IssuerConfig{Issuer: "account-test"}, clk, nil)
	token, _, err := iss.IssueAccessToken(testSubject())
	require.NoError(t, err)

	_, ok := iss.VerifyAccessToken(token)
	assert.True(t, ok)

	hmac, err := NewHMACSigner([]byte("test-jwt-secret"))
	require.NoError(t, err)
	_, ok = NewIssuer(hmac, IssuerConfig{Issuer: "account-test"}, clk, nil).VerifyAccessToken(token)
	assert.False(t, ok)
}

func TestEd25519SignerFromSeed(t *testing.T) {
	t.Parallel()

	_, err := Ed25519SignerFromSeed("AAAA")
	require.Error(t, err)

	_, err = Ed25519SignerFromSeed("%%%")
	require.Error(t, err)

	s, err := Ed25519SignerFromSeed("MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=")
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestNewHMACSigner_EmptySecret(t *testing.T) {
	t.Parallel()
	_, err := NewHMACSigner(nil)
	require.Error(t, err)
}

func TestIssuer_DefaultsToSystemClock(t *testing.T) {
	t.Parallel()

	signer, err := NewHMACSigner([]byte("test-jwt-secret"))
	require.NoError(t, err)
	iss := NewIssuer(signer, IssuerConfig{Issuer: "account-test"}, nil, nil)

	before := time.Now().UTC()
	token, exp, err := iss.IssueAccessToken(testSubject())
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(15*time.Minute), exp, 5*time.Second)

	_, ok := iss.VerifyAccessToken(token)
	assert.True(t, ok)
}
