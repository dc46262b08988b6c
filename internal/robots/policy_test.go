package robots

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPolicyAllowed(t *testing.T) {
	t.Parallel()

	policy, err := Parse("User-agent: *\nDisallow: /private\nAllow: /private/open\n\nUser-agent: special-bot\nDisallow: /\n")
	require.NoError(t, err)

	tests := []struct {
		agent string
		raw   string
		want  bool
	}{
		{agent: "*", raw: "https://example.com/", want: true},
		{agent: "*", raw: "https://example.com", want: true},
		{agent: "*", raw: "https://example.com/public/page", want: true},
		{agent: "*", raw: "https://example.com/private", want: false},
		{agent: "*", raw: "https://example.com/private/secret?x=1", want: false},
		{agent: "*", raw: "https://example.com/private/open", want: true},
		{agent: "special-bot", raw: "https://example.com/public/page", want: false},
		{agent: "other-bot", raw: "https://example.com/private", want: false},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		require.NoError(t, err)
		require.Equal(t, tt.want, policy.Allowed(tt.agent, u), "%s %s", tt.agent, tt.raw)
	}
}

func TestEmptyPolicyAllowsEverything(t *testing.T) {
	t.Parallel()

	u, err := url.Parse("https://example.com/anything")
	require.NoError(t, err)

	policy, err := Parse("")
	require.NoError(t, err)
	require.True(t, policy.Allowed("*", u))

	var nilPolicy *Policy
	require.True(t, nilPolicy.Allowed("*", u))
}

func TestHTMLBodyAllowsEverything(t *testing.T) {
	t.Parallel()

	// Servers without robots.txt often answer with an HTML page.
	policy, _ := Parse("<html><body>not found</body></html>")
	u, err := url.Parse("https://example.com/page")
	require.NoError(t, err)
	require.True(t, policy.Allowed("*", u))
}
