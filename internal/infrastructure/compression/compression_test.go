package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	payload := []byte(strings.Repeat(`{"is_compound":false,"left":"model","operator":"=","right":"gpt-4"}`, 20))

	for _, algo := range []Algo{Gzip, Zstd} {
		t.Run(string(algo), func(t *testing.T) {
			enc, err := NewEncoder(algo, 64)
			require.NoError(t, err)

			out, applied, err := enc.Encode(payload)
			require.NoError(t, err)
			assert.Equal(t, algo, applied)
			assert.Less(t, len(out), len(payload))

			r, err := NewReader(applied, bytes.NewReader(out))
			require.NoError(t, err)
			defer r.Close()
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestEncode_BelowThreshold(t *testing.T) {
	enc, err := NewEncoder(Gzip, 1024)
	require.NoError(t, err)
	out, applied, err := enc.Encode([]byte("small"))
	require.NoError(t, err)
	assert.Equal(t, None, applied)
	assert.Equal(t, []byte("small"), out)
}

func TestParseAlgo(t *testing.T) {
	for in, want := range map[string]Algo{"": None, "identity": None, "GZIP": Gzip, "x-gzip": Gzip, "zstd": Zstd} {
		got, err := ParseAlgo(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseAlgo("br")
	require.Error(t, err)
}
