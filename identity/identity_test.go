package identity

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)
	require.NoError(t, kp.Identity.Validate())

	msg := []byte("listing:abc")
	sig := kp.Sign(msg)

	ok, err := Verify(kp.Identity, msg, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(kp.Identity, []byte("listing:abd"), sig)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Verify(kp.Identity, msg, sig[:10])
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Verify("not-an-identity", msg, sig)
	assert.Error(t, err)
}

func TestFromSeedIsDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)
	a, err := FromSeed(seed)
	require.NoError(t, err)
	b, err := FromSeed(seed)
	require.NoError(t, err)
	assert.Equal(t, a.Identity, b.Identity)

	_, err = FromSeed([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestPrivateKeyEncoding(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	back, err := DecodePrivateKey(kp.EncodePrivateKey())
	require.NoError(t, err)
	assert.Equal(t, kp.Identity, back.Identity)

	_, err = DecodePrivateKey("3mJr7AoUXx2Wqd")
	assert.Error(t, err)
}

func TestKeyFile(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "oracle.key")
	require.NoError(t, kp.SaveKeyFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadKeyFile(path)
	require.NoError(t, err)
	assert.Equal(t, kp.Identity, loaded.Identity)

	other, err := Generate()
	require.NoError(t, err)
	tampered := `{"identity":"` + string(other.Identity) + `","private_key":"` + kp.EncodePrivateKey() + `"}`
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0600))
	_, err = LoadKeyFile(path)
	assert.Error(t, err)
}
