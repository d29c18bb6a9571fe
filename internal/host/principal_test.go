package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvledger/internal/fault"
)

func TestParsePrincipal(t *testing.T) {
	p, err := ParsePrincipal("student", "Jos\u00e9")
	require.NoError(t, err)
	assert.Equal(t, Principal("Jos\u00e9"), p)

	p, err = ParsePrincipal("student", "Jose\u0301")
	require.NoError(t, err)
	assert.Equal(t, Principal("Jos\u00e9"), p)
}

func TestParsePrincipalRejects(t *testing.T) {
	for _, s := range []string{"", "\xff", "\xfe", "ok\xc3"} {
		_, err := ParsePrincipal("tutor", s)
		require.ErrorIs(t, err, fault.ErrInvalidArgument, "%q", s)
		assert.Contains(t, err.Error(), "tutor")
	}
}

func TestPrincipalNormalize(t *testing.T) {
	assert.Equal(t, Principal("Jos\u00e9"), Principal("Jose\u0301").Normalize())
	assert.Equal(t, Anonymous, Anonymous.Normalize())
	assert.Equal(t, Principal("\xff"), Principal("\xff").Normalize())
}
