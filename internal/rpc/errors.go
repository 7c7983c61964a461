package rpc

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/PoolSync/internal/common"
)

var (
	// response size limits of common providers on eth_getLogs
	tooManyResultsRe = regexp.MustCompile(`(?i)query returned more than \d+ results` +
		`|log response size exceeded` +
		`|block range (is )?too (large|wide)` +
		`|exceeds? (the )?max(imum)? block range`)

	suggestedRangeRe = regexp.MustCompile(`\[(0x[0-9a-fA-F]+),\s*(0x[0-9a-fA-F]+)\]`)
)

// IsTooManyResultsError reports whether err is a provider refusing an eth_getLogs range
// as too large. The returned text is the error data of an rpc.DataError, or the error
// message otherwise, and may carry a suggested range.
func IsTooManyResultsError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	text := err.Error()
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		text = fmt.Sprintf("%v", dataErr.ErrorData())
	}

	return tooManyResultsRe.MatchString(text), text
}

// ParseSuggestedBlockRange extracts the first "[0xfrom, 0xto]" range from a provider message,
// e.g. "Query returned more than 20000 results. Try with this block range [0x7dfd25, 0x7e0fcc]."
func ParseSuggestedBlockRange(msg string) (fromBlock, toBlock uint64, ok bool) {
	matches := suggestedRangeRe.FindStringSubmatch(msg)
	if len(matches) != 3 {
		return 0, 0, false
	}

	from, err := common.ParseUint64orHex(&matches[1])
	if err != nil {
		return 0, 0, false
	}
	to, err := common.ParseUint64orHex(&matches[2])
	if err != nil || to < from {
		return 0, 0, false
	}

	return from, to, true
}
