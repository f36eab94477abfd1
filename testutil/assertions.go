package testutil

import (
	"encoding/hex"
	"encoding/json"
	"github.com/stretchr/testify/require"
	"testing"
)

func RequireEqualHexBytes(t *testing.T, exp string, act []byte) {
	require.Equal(t, exp, hex.EncodeToString(act))
}

// RequireJSONFields checks that act marshals to an object carrying every
// key in exp with an equal value. Keys absent from exp are ignored.
func RequireJSONFields(t *testing.T, exp map[string]interface{}, act interface{}) {
	actJ, err := json.Marshal(act)
	require.NoError(t, err)
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(actJ, &fields))

	expJ, err := json.Marshal(exp)
	require.NoError(t, err)
	var want map[string]interface{}
	require.NoError(t, json.Unmarshal(expJ, &want))

	for k, v := range want {
		require.Contains(t, fields, k)
		require.Equal(t, v, fields[k], k)
	}
}
