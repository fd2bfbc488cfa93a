package hashing

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Tests use the minimum cost to stay fast; cost does not change semantics.
func newTestHasher() *Hasher {
	return NewHasher(bcrypt.MinCost)
}

func TestHashVerifyRoundTrip(t *testing.T) {
	h := newTestHasher()
	for _, secret := range []string{"changeme123", "pässwörd-ünïcode", strings.Repeat("x", 72)} {
		hash, err := h.Hash(secret)
		require.NoError(t, err)
		assert.True(t, h.Verify(secret, hash), secret)
		assert.True(t, IsHash(hash))
	}
}

func TestHashIsSalted(t *testing.T) {
	h := newTestHasher()
	a, err := h.Hash("same-secret")
	require.NoError(t, err)
	b, err := h.Hash("same-secret")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("same-secret", a))
	assert.True(t, h.Verify("same-secret", b))
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	h := newTestHasher()
	hash, err := h.Hash("secret-one")
	require.NoError(t, err)
	assert.False(t, h.Verify("secret-two", hash))
	assert.False(t, h.Verify("", hash))
}

func TestVerifyRejectsSecretSharingMaxLengthPrefix(t *testing.T) {
	h := newTestHasher()
	stored := strings.Repeat("a", 72)
	hash, err := h.Hash(stored)
	require.NoError(t, err)

	assert.True(t, h.Verify(stored, hash))
	assert.False(t, h.Verify(stored+"totally-different-suffix", hash))
	assert.False(t, h.Verify(stored+"a", hash))
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newTestHasher()
	for _, stored := range []string{"", "plaintext", "$2a$12$short", "$2a$99$" + strings.Repeat("a", 53)} {
		assert.NotPanics(t, func() {
			assert.False(t, h.Verify("plaintext", stored))
		})
	}
	assert.False(t, IsHash("plaintext"))
}

func TestHashRejectsBadInput(t *testing.T) {
	h := newTestHasher()
	_, err := h.Hash("")
	assert.ErrorIs(t, err, ErrEmptySecret)
	_, err = h.Hash(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrSecretTooLong)
}

func TestNewHasherCost(t *testing.T) {
	assert.Equal(t, DefaultCost, NewHasher(0).Cost())
	assert.Equal(t, bcrypt.MinCost, NewHasher(1).Cost())
	assert.Equal(t, bcrypt.MaxCost, NewHasher(99).Cost())

	hash, err := NewHasher(5).Hash("cost-check")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 5, cost)
}

func TestConcurrentUse(t *testing.T) {
	h := newTestHasher()
	hash, err := h.Hash("shared")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, h.Verify("shared", hash))
		}()
	}
	wg.Wait()
}
