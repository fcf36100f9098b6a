package common

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccountFromKeypairFile(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	values := make([]int, len(priv))
	for i, b := range priv {
		values[i] = int(b)
	}
	raw, err := json.Marshal(values)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keypair.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	account, err := NewAccountFromKeypairFile(path)
	require.NoError(t, err)

	assert.EqualValues(t, pub, account.PublicKey().ToBytes())
	assert.True(t, account.PublicKey().IsPublic())
	assert.False(t, account.PrivateKey().IsPublic())
}

func TestNewAccountFromKeypairFileInvalid(t *testing.T) {
	dir := t.TempDir()

	shortPath := filepath.Join(dir, "short.json")
	require.NoError(t, os.WriteFile(shortPath, []byte("[1,2,3]"), 0o600))
	_, err := NewAccountFromKeypairFile(shortPath)
	assert.Error(t, err)

	badBytePath := filepath.Join(dir, "badbyte.json")
	values := make([]int, ed25519.PrivateKeySize)
	values[0] = 300
	raw, err := json.Marshal(values)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(badBytePath, raw, 0o600))
	_, err = NewAccountFromKeypairFile(badBytePath)
	assert.Error(t, err)

	_, err = NewAccountFromKeypairFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestAccountSign(t *testing.T) {
	account, err := NewRandomAccount()
	require.NoError(t, err)

	message := []byte("crank scheduler test message")
	signature, err := account.Sign(message)
	require.NoError(t, err)

	assert.True(t, ed25519.Verify(account.PublicKey().ToBytes(), message, signature))
}
