package common

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUint64orHex(t *testing.T) {
	ptr := func(s string) *string { return &s }

	tests := []struct {
		in      *string
		want    uint64
		wantErr bool
	}{
		{in: nil, want: 0},
		{in: ptr("12345"), want: 12345},
		{in: ptr("0x10"), want: 16},
		{in: ptr("0xffffffffffffffff"), want: ^uint64(0)},
		{in: ptr("0x"), wantErr: true},
		{in: ptr("0xzz"), wantErr: true},
		{in: ptr("-1"), wantErr: true},
		{in: ptr("18446744073709551616"), wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseUint64orHex(tt.in)
		if tt.wantErr {
			require.Error(t, err, *tt.in)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}
}

func TestParseBigInt(t *testing.T) {
	huge, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)

	valid := []struct {
		in   string
		want *big.Int
	}{
		{in: "", want: big.NewInt(0)},
		{in: "  42 ", want: big.NewInt(42)},
		{in: "-7", want: big.NewInt(-7)},
		{in: "0xff", want: big.NewInt(255)},
		{in: "-0x10", want: big.NewInt(-16)},
		{in: huge.String(), want: huge},
		{in: "0x" + huge.Text(16), want: huge},
	}
	for _, tt := range valid {
		got, err := ParseBigInt(tt.in)
		require.NoError(t, err, tt.in)
		require.Zero(t, tt.want.Cmp(got), tt.in)
	}

	for _, in := range []string{"abc", "1.5", "0xg1"} {
		_, err := ParseBigInt(in)
		require.ErrorContains(t, err, "invalid integer", in)
	}
}

func TestBigString(t *testing.T) {
	require.Equal(t, "0", BigString(nil))
	require.Equal(t, "-300", BigString(big.NewInt(-300)))
}

func TestUnitHelpers(t *testing.T) {
	require.Equal(t, uint64(3), BytesToMB(3*1024*1024+512))
	require.Equal(t, "uniswap_v2", ToLowerWithTrim("  Uniswap_V2\t"))
}
