package sessioncookie

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	c := New([]byte("secret"), "zo_checkout", false, time.Hour)

	v := c.Encode("3f1c2a9e-0000-4000-8000-000000000001")
	id, err := c.Decode(v)
	require.NoError(t, err)
	assert.Equal(t, "3f1c2a9e-0000-4000-8000-000000000001", id)
}

func TestCodec_RejectsTampering(t *testing.T) {
	c := New([]byte("secret"), "zo_checkout", false, time.Hour)
	other := New([]byte("other"), "zo_checkout", false, time.Hour)

	for _, v := range []string{
		"",
		"no-signature",
		".sig",
		"a.b.c",
		"victim." + c.Encode("attacker")[len("attacker."):],
		other.Encode("sess"),
	} {
		_, err := c.Decode(v)
		assert.ErrorIs(t, err, ErrInvalid, v)
	}
}
