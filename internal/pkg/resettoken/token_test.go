package resettoken

import (
	"encoding/base64"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	at := time.UnixMilli(1_760_000_000_123)
	tok := Encode("a@b.com", at)

	raw, err := base64.StdEncoding.DecodeString(tok)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com:1760000000123", string(raw))

	email, issued, err := Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", email)
	assert.True(t, issued.Equal(at))
}

func TestDecode_Malformed(t *testing.T) {
	_, _, err := Decode("%%%")
	assert.Error(t, err)
	_, _, err = Decode(base64.StdEncoding.EncodeToString([]byte("no-colon")))
	assert.Error(t, err)
	_, _, err = Decode(base64.StdEncoding.EncodeToString([]byte("a@b.com:soon")))
	assert.Error(t, err)
}

func TestLink(t *testing.T) {
	assert.Equal(t,
		"http://localhost:5173/reset-password?token=YT1i%2Bc%3D&email=a%2Btag%40b.com",
		Link("http://localhost:5173/reset-password", "YT1i+c=", "a+tag@b.com"))
	assert.Equal(t,
		"http://x/reset?lang=pt&token=t&email=e",
		Link("http://x/reset?lang=pt", "t", "e"))
}

func TestLink_TokenDecodesFromQuery(t *testing.T) {
	at := time.UnixMilli(1_760_000_000_456)
	link := Link("http://localhost:5173/reset-password", Encode("ana+tag@example.com", at), "ana+tag@example.com")

	u, err := url.Parse(link)
	require.NoError(t, err)
	email, issued, err := Decode(u.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, "ana+tag@example.com", email)
	assert.Equal(t, email, u.Query().Get("email"))
	assert.True(t, issued.Equal(at))
}
