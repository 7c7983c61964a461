package rpc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type mockDataError struct {
	data any
	msg  string
}

func (m *mockDataError) Error() string {
	return m.msg
}

func (m *mockDataError) ErrorData() any {
	return m.data
}

func TestIsTooManyResultsError(t *testing.T) {
	t.Parallel()

	const infura = "Query returned more than 10000 results. Try with this block range [0x10, 0x20]."

	tests := []struct {
		name      string
		err       error
		wantMatch bool
		wantText  string
	}{
		{"nil", nil, false, ""},
		{"plain error", errors.New("header not found"), false, "header not found"},
		{"data error with suggestion", &mockDataError{msg: "query limit", data: infura}, true, infura},
		{"wrapped data error", fmt.Errorf("eth_getLogs: %w", &mockDataError{msg: "x", data: infura}), true, infura},
		{"data error without data", &mockDataError{msg: "block range is too large"}, true, "block range is too large"},
		{"alchemy", errors.New("Log response size exceeded. this block range should work: [0x1, 0x2]"), true,
			"Log response size exceeded. this block range should work: [0x1, 0x2]"},
		{"max range", errors.New("requested range exceeds maximum block range: 5000"), true,
			"requested range exceeds maximum block range: 5000"},
		{"unrelated data", &mockDataError{msg: "reverted", data: "0x08c379a0"}, false, "0x08c379a0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			match, text := IsTooManyResultsError(tt.err)
			require.Equal(t, tt.wantMatch, match)
			require.Equal(t, tt.wantText, text)
		})
	}
}

func TestParseSuggestedBlockRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg      string
		from, to uint64
		ok       bool
	}{
		{"", 0, 0, false},
		{"Query returned more than 20000 results.", 0, 0, false},
		{"Try with this block range [0x7dfd25, 0x7e0fcc].", 8256805, 8261580, true},
		{"range [0x1aBc,   0x2DEF]", 6844, 11759, true},
		{"range [0xZZ, 0x12]", 0, 0, false},
		{"range [0x20, 0x10]", 0, 0, false},
		{"first wins [0x10, 0x20] then [0x30, 0x40]", 16, 32, true},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			t.Parallel()

			from, to, ok := ParseSuggestedBlockRange(tt.msg)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.from, from)
			require.Equal(t, tt.to, to)
		})
	}
}
