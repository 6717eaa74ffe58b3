package statsd

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanPrefix(t *testing.T) {
	cases := map[string]string{
		"  bulkhaus.api  ": "bulkhaus.api",
		"..shop..":         "shop",
		".":                "",
		"":                 "",
	}
	for in, want := range cases {
		require.Equal(t, want, cleanPrefix(in), in)
	}
}

func TestCleanMetricName(t *testing.T) {
	cases := map[string]string{
		" checkout/total ":   "checkout_total",
		"reconcile..elapsed": "reconcile.elapsed",
		"cart  items":        "cart__items",
		"orders/u1/count":    "orders_u1_count",
	}
	for in, want := range cases {
		require.Equal(t, want, cleanMetricName(in), in)
	}
}

func TestEncodeTagsMergesAndSorts(t *testing.T) {
	global := map[string]string{
		"env":       "prod",
		" service ": " storefront ",
	}
	local := map[string]string{
		"result": " success ",
		"":       "ignored",
		"env":    "stage",
	}

	// Per-call tags override globals; whitespace is trimmed.
	require.Equal(t, "|#env:stage,result:success,service:storefront", encodeTags(global, local))
}

func TestEncodeTagsEmpty(t *testing.T) {
	require.Empty(t, encodeTags(nil, nil))
}

func TestCopyTagsReturnsCopy(t *testing.T) {
	original := map[string]string{
		"env": "prod",
		"":    "ignored",
	}

	cloned := copyTags(original)
	require.NotNil(t, cloned)
	require.NotContains(t, cloned, "")

	cloned["env"] = "stage"
	require.Equal(t, "prod", original["env"])
}

func TestClientEnabledAndClose(t *testing.T) {
	clientConn, peerConn := net.Pipe()
	defer func() { _ = peerConn.Close() }()

	client := &Client{
		enabled: true,
		conn:    clientConn,
	}

	require.True(t, client.Enabled())
	require.NoError(t, client.Close())
	require.False(t, client.Enabled())

	// Closing twice is fine.
	require.NoError(t, client.Close())

	var nilClient *Client
	require.False(t, nilClient.Enabled())
	require.NoError(t, nilClient.Close())
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	client, err := NewClient(Config{
		Enabled: true,
		Address: "   ",
	})
	require.NoError(t, err)
	require.False(t, client.Enabled())
}

func TestNewClientDialError(t *testing.T) {
	_, err := NewClient(Config{
		Enabled: true,
		Address: "bad address",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "statsd dial")
}
