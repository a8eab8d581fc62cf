package blockchain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/rpc"
)

var revertHexPattern = regexp.MustCompile(`0x[0-9a-fA-F]{8,}`)

// describeRevert turns an RPC error into the revert reason when one can
// be decoded, and into the plain error text otherwise.
func describeRevert(err error) string {
	if err == nil {
		return ""
	}
	if data, ok := revertDataFromError(err); ok {
		if reason, ok := decodeRevertData(data); ok {
			return reason
		}
	}
	return err.Error()
}

func revertDataFromError(err error) ([]byte, bool) {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := revertBytesFromAny(dataErr.ErrorData()); ok {
			return data, true
		}
	}
	for _, candidate := range revertHexPattern.FindAllString(err.Error(), -1) {
		if data, ok := parseHexBytes(candidate); ok {
			return data, true
		}
	}
	return nil, false
}

func revertBytesFromAny(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case string:
		return parseHexBytes(v)
	case []byte:
		if len(v) == 0 {
			return nil, false
		}
		return append([]byte(nil), v...), true
	case map[string]interface{}:
		if raw, ok := v["data"]; ok {
			return revertBytesFromAny(raw)
		}
	}
	return nil, false
}

func parseHexBytes(raw string) ([]byte, bool) {
	value := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if len(value) < 8 || len(value)%2 != 0 {
		return nil, false
	}
	data, err := hex.DecodeString(value)
	if err != nil {
		return nil, false
	}
	return data, true
}

// decodeRevertData understands Error(string) and Panic(uint256); any other
// selector is reported as a custom error.
func decodeRevertData(data []byte) (string, bool) {
	if len(data) < 4 {
		return "", false
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason, true
	}
	return fmt.Sprintf("custom error 0x%s", hex.EncodeToString(data[:4])), true
}
