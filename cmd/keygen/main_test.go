package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aussiebroadwan/tally/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestRunOutputLoads(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"--export"}, &out))

	vars := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		require.True(t, strings.HasPrefix(line, "export "), line)
		name, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		require.True(t, ok, line)
		vars[name] = value
	}
	require.Len(t, vars, 4)

	_, err := jwtx.LoadKeys(jwtx.KeySource{
		PrivateKey:      vars["AUTH_PRIVATE_KEY"],
		PublicKey:       vars["AUTH_PUBLIC_KEY"],
		RefreshSecret:   vars["AUTH_REFRESH_SECRET"],
		DelegatedSecret: vars["AUTH_DB_ACCESS_SECRET"],
	})
	require.NoError(t, err)
}

func TestRunRejectsSmallKeys(t *testing.T) {
	var out bytes.Buffer
	require.Error(t, run([]string{"--bits", "1024"}, &out))
	require.Empty(t, out.String())
}
