package rpc

import (
	"net/http"

	coreerr "padipay/core/errors"
)

const (
	codeParseError        = -32700
	codeInvalidRequest    = -32600
	codeMethodNotFound    = -32601
	codeInvalidParams     = -32602
	codeServerError       = -32000
	codeUnauthorized      = -32001
	codeStateConflict     = -32009
	codeInsufficientFunds = -32011
	codeBoundsViolation   = -32012
	codeRateLimited       = -32020
)

// errorCode maps a ledger failure onto its JSON-RPC code and HTTP status.
func errorCode(err error) (int, int) {
	switch coreerr.KindOf(err) {
	case coreerr.KindInvalidInput:
		return codeInvalidParams, http.StatusBadRequest
	case coreerr.KindStateConflict:
		return codeStateConflict, http.StatusConflict
	case coreerr.KindNotAuthorized:
		return codeUnauthorized, http.StatusForbidden
	case coreerr.KindBoundsViolation:
		return codeBoundsViolation, http.StatusUnprocessableEntity
	case coreerr.KindInsufficientFunds:
		return codeInsufficientFunds, http.StatusPaymentRequired
	default:
		return codeServerError, http.StatusInternalServerError
	}
}

func writeLedgerError(w http.ResponseWriter, id interface{}, message string, err error) {
	code, status := errorCode(err)
	writeError(w, status, id, code, message, err.Error())
}
