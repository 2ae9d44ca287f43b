package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Netflix", "netflix"},
		{"  NETFLIX  ", "netflix"},
		{"ｎｅｔｆｌｉｘ", "netflix"},
		{"Disney   Plus", "disney plus"},
		{"Straße", "strasse"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, PlatformKey(tt.in))
		})
	}
}

func TestParsePlatformKind(t *testing.T) {
	k, err := ParsePlatformKind("")
	require.NoError(t, err)
	assert.Equal(t, PlatformAccount, k)

	k, err = ParsePlatformKind("cookie")
	require.NoError(t, err)
	assert.Equal(t, PlatformCookie, k)

	_, err = ParsePlatformKind("voucher")
	assert.Error(t, err)
}

func TestCleanStockItems(t *testing.T) {
	got := CleanStockItems([]string{" a@x.com:pw ", "", "   ", "b@x.com:pw", "b@x.com:pw"})
	assert.Equal(t, []string{"a@x.com:pw", "b@x.com:pw", "b@x.com:pw"}, got)
}

func TestNormalizeChannels(t *testing.T) {
	got := NormalizeChannels([]string{"mychannel", "@MyChannel", " @other ", "", "-1001234"})
	assert.Equal(t, []string{"@mychannel", "@other", "-1001234"}, got)
}
