package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "github.com/PolyGoonMaticOG/polygoon-farm-contracts/native/common"
	nativefarm "github.com/PolyGoonMaticOG/polygoon-farm-contracts/native/farm"
	nativetreasury "github.com/PolyGoonMaticOG/polygoon-farm-contracts/native/treasury"
)

const requestLimit = 1 << 20 // 1 MiB

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeEngineError maps the module error taxonomy onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, nativefarm.ErrUnauthorized), errors.Is(err, nativetreasury.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, nativefarm.ErrInvalidPool), errors.Is(err, nativefarm.ErrInvalidCategory):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, nativefarm.ErrInvalidAmount),
		errors.Is(err, nativefarm.ErrParameterOutOfRange),
		errors.Is(err, nativefarm.ErrDuplicateAsset),
		errors.Is(err, nativetreasury.ErrInvalidAmount),
		errors.Is(err, nativetreasury.ErrInvalidParams):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, nativefarm.ErrInsufficientStake),
		errors.Is(err, nativefarm.ErrPoolDisabled),
		errors.Is(err, nativetreasury.ErrInsufficientReserve),
		errors.Is(err, nativecommon.ErrReentrancyRejected):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, nativecommon.ErrModulePaused):
		writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, nativefarm.ErrTransferFailed), errors.Is(err, nativetreasury.ErrTransferFailed):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeRequest(r *http.Request, dst any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, requestLimit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address: %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func parseWeek(raw string) (uint64, error) {
	week, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid week: %q", raw)
	}
	return week, nil
}

func parseAmount(raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount: %q", raw)
	}
	return value, nil
}

func formatAmount(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}
