package order

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var numberPattern = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}$`)

func fixedBytes(t *testing.T, hexes ...string) *bytes.Reader {
	t.Helper()
	var buf []byte
	for _, h := range hexes {
		b, err := hex.DecodeString(h)
		require.NoError(t, err)
		buf = append(buf, b...)
	}
	return bytes.NewReader(buf)
}

func TestGenerateNumber_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		n, err := GenerateNumber(rand.Reader)
		require.NoError(t, err)
		assert.Regexp(t, numberPattern, n)
	}
}

func TestGenerateNumber_Deterministic(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  string
	}{
		{"twelve digits", []string{"001cbe991a14"}, "1234-5678-9012"},
		{"smallest twelve digit value", []string{"00174876e800"}, "1000-0000-0000"},
		{"largest twelve digit value", []string{"00e8d4a50fff"}, "9999-9999-9999"},
		{"too many digits skipped", []string{"ffffffffffff", "001cbe991a14"}, "1234-5678-9012"},
		{"too few digits skipped", []string{"000000000001", "00174876e800"}, "1000-0000-0000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := GenerateNumber(fixedBytes(t, tt.input...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestGenerateNumber_ShortSource(t *testing.T) {
	_, err := GenerateNumber(fixedBytes(t, "ffffffffffff"))
	assert.Error(t, err)
}
