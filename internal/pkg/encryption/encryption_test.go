package encryption_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifiedui/assistant-bot/internal/pkg/encryption"
)

func TestNewAESEncryptor_KeyFormats(t *testing.T) {
	raw := "assistant-bot-session-key-32byte"

	tests := []struct {
		name string
		key  string
	}{
		{name: "raw", key: raw},
		{name: "hex", key: hex.EncodeToString([]byte(raw))},
		{name: "base64", key: "YXNzaXN0YW50LWJvdC1zZXNzaW9uLWtleS0zMmJ5dGU="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := encryption.NewAESEncryptor(tt.key)
			require.NoError(t, err)

			sealed, err := enc.EncryptString("depth=3")
			require.NoError(t, err)
			opened, err := enc.DecryptString(sealed)
			require.NoError(t, err)
			assert.Equal(t, "depth=3", opened)
		})
	}
}

func TestNewAESEncryptor_InvalidKey(t *testing.T) {
	_, err := encryption.NewAESEncryptor("short")

	assert.Error(t, err)
}

func TestAESEncryptor_NonceIsRandom(t *testing.T) {
	key, err := encryption.GenerateKey()
	require.NoError(t, err)
	enc, err := encryption.NewAESEncryptor(key)
	require.NoError(t, err)

	a, _ := enc.Encrypt([]byte("same"))
	b, _ := enc.Encrypt([]byte("same"))

	assert.NotEqual(t, a, b)
}

func TestAESEncryptor_WrongKeyFails(t *testing.T) {
	k1, _ := encryption.GenerateKey()
	k2, _ := encryption.GenerateKey()
	enc1, _ := encryption.NewAESEncryptor(k1)
	enc2, _ := encryption.NewAESEncryptor(k2)

	sealed, err := enc1.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = enc2.Decrypt(sealed)
	assert.Error(t, err)

	_, err = enc1.Decrypt("AAAA")
	assert.Error(t, err)
}

func TestNew_EmptyKeyIsNoOp(t *testing.T) {
	enc, err := encryption.New("")
	require.NoError(t, err)

	sealed, err := enc.EncryptString("plain")
	require.NoError(t, err)
	assert.Equal(t, "cGxhaW4=", sealed)

	opened, err := enc.DecryptString(sealed)
	require.NoError(t, err)
	assert.Equal(t, "plain", opened)
}
