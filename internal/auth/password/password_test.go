package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	encoded, err := Hash("s3cret-pass")
	require.NoError(t, err)

	assert.True(t, Verify("s3cret-pass", encoded))
	assert.False(t, Verify("other-pass", encoded))
	assert.False(t, NeedsRehash(encoded))
}

func TestHashesAreSalted(t *testing.T) {
	a, err := Hash("same-password")
	require.NoError(t, err)
	b, err := Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=1,t=1,p=1$x$y",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA",
	} {
		assert.False(t, Verify("pw", encoded), encoded)
	}
}

func TestNeedsRehashForWeakParams(t *testing.T) {
	weak, err := HashWith("s3cret-pass", Params{Memory: 8 * 1024, Time: 1, Threads: 1, KeyLen: 32})
	require.NoError(t, err)

	assert.True(t, Verify("s3cret-pass", weak))
	assert.True(t, NeedsRehash(weak))
	assert.True(t, NeedsRehash("garbage"))
}

func TestAcceptable(t *testing.T) {
	assert.False(t, Acceptable("short"))
	assert.False(t, Acceptable("   seven  "))
	assert.True(t, Acceptable("eight ch"))
	assert.True(t, Acceptable("senhaçõe"))
}
