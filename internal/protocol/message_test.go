package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	t.Run("success with result", func(t *testing.T) {
		res, err := ParseResponse([]byte(`{"success":true,"result":{"version":"1.2.0"}}`))
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.JSONEq(t, `{"version":"1.2.0"}`, string(res.Result))
		assert.Nil(t, res.Error)
	})

	t.Run("failure with string error", func(t *testing.T) {
		res, err := ParseResponse([]byte(`{"success":false,"error":"unknown package: nginx-extras"}`))
		require.NoError(t, err)
		assert.False(t, res.Success)
		require.NotNil(t, res.Error)
		assert.Equal(t, "unknown package: nginx-extras", res.Error.Message)
		assert.Empty(t, res.Error.Code)
	})

	t.Run("failure with object error", func(t *testing.T) {
		res, err := ParseResponse([]byte(`{"success":false,"error":{"message":"signature mismatch","code":"AUTH_FAILED"}}`))
		require.NoError(t, err)
		require.NotNil(t, res.Error)
		assert.Equal(t, "signature mismatch", res.Error.Message)
		assert.Equal(t, "AUTH_FAILED", res.Error.Code)
		assert.Equal(t, "signature mismatch (AUTH_FAILED)", res.Error.Error())
	})

	t.Run("failure with object error without code", func(t *testing.T) {
		res, err := ParseResponse([]byte(`{"success":false,"error":{"message":"service not found"}}`))
		require.NoError(t, err)
		require.NotNil(t, res.Error)
		assert.Equal(t, "service not found", res.Error.Message)
		assert.Equal(t, "service not found", res.Error.Error())
	})

	t.Run("null error is tolerated", func(t *testing.T) {
		res, err := ParseResponse([]byte(`{"success":true,"error":null}`))
		require.NoError(t, err)
		assert.True(t, res.Success)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		res, err := ParseResponse([]byte(`{broken`))
		assert.Nil(t, res)
		require.Error(t, err)
		assert.Contains(t, err.Error(), CodeInvalidJSON)
	})

	t.Run("error of unexpected array shape", func(t *testing.T) {
		res, err := ParseResponse([]byte(`{"success":false,"error":[1,2]}`))
		assert.Nil(t, res)
		require.Error(t, err)
		assert.Contains(t, err.Error(), CodeInvalidJSON)
	})
}

func TestMarshalRequest(t *testing.T) {
	params, err := Canonicalize(map[string]any{"name": "nginx"})
	require.NoError(t, err)

	data, err := MarshalRequest(&Request{
		Command:   "service.restart",
		Params:    params,
		Timestamp: 1700000000,
		Nonce:     "8b0f9a52-7b0e-4f7e-b6ec-1f6ad8a1c001",
		Signature: "deadbeef",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"command": "service.restart",
		"params": {"name":"nginx"},
		"timestamp": 1700000000,
		"nonce": "8b0f9a52-7b0e-4f7e-b6ec-1f6ad8a1c001",
		"signature": "deadbeef"
	}`, string(data))
}

func TestCanonicalize(t *testing.T) {
	t.Run("deterministic key ordering", func(t *testing.T) {
		a, err := Canonicalize(map[string]any{"zeta": 1, "alpha": "x", "mid": true})
		require.NoError(t, err)
		b, err := Canonicalize(map[string]any{"mid": true, "alpha": "x", "zeta": 1})
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
		assert.Equal(t, `{"alpha":"x","mid":true,"zeta":1}`, string(a))
	})

	t.Run("nested objects and arrays", func(t *testing.T) {
		got, err := Canonicalize(map[string]any{
			"packages": []string{"nginx", "mariadb-server"},
			"options":  map[string]any{"force": false, "assume_yes": true},
		})
		require.NoError(t, err)
		assert.Equal(t, `{"options":{"assume_yes":true,"force":false},"packages":["nginx","mariadb-server"]}`, string(got))
	})

	t.Run("nil params yield empty object", func(t *testing.T) {
		got, err := Canonicalize(nil)
		require.NoError(t, err)
		assert.Equal(t, `{}`, string(got))
	})

	t.Run("repeated calls are byte-identical", func(t *testing.T) {
		params := map[string]any{"path": "/var/www/html", "mode": "0755"}
		first, err := Canonicalize(params)
		require.NoError(t, err)
		second, err := Canonicalize(params)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}
