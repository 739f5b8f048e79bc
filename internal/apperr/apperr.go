// Package apperr carries the typed outcomes of bid settlement and payout
// requests so the calling layer can map them to a status and a stable reason.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidState
	KindForbidden
	KindBusinessRule
	KindValidation
	KindTransientStorage
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindForbidden:
		return "forbidden"
	case KindBusinessRule:
		return "business_rule_violation"
	case KindValidation:
		return "validation_failed"
	case KindTransientStorage:
		return "transient_storage_failure"
	}
	return "unknown"
}

type Reason string

const (
	ReasonAuctionNotFound      Reason = "auction_not_found"
	ReasonNotAnAuction         Reason = "not_an_auction"
	ReasonAuctionNotOpen       Reason = "auction_not_open"
	ReasonAuctionEnded         Reason = "auction_ended"
	ReasonOwnAuctionForbidden  Reason = "own_auction_forbidden"
	ReasonBidTooLow            Reason = "bid_too_low"
	ReasonPayoutAlreadyPending Reason = "payout_already_pending"
	ReasonNoEligibleEarnings   Reason = "no_eligible_earnings"
	ReasonOrdersAlreadyPaid    Reason = "orders_already_paid"
	ReasonInvalidInput         Reason = "invalid_input"
	ReasonSettlementConflict   Reason = "settlement_conflict"
	ReasonStorageFailure       Reason = "storage_failure"
)

type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, reason Reason, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message}
}

func Wrap(err error, kind Kind, reason Reason, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message, Err: err}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, ReasonInvalidInput, fmt.Sprintf(format, args...))
}

func Storage(err error, message string) *Error {
	return Wrap(err, KindTransientStorage, ReasonStorageFailure, message)
}

func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

func ReasonOf(err error) Reason {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}

// IsRetryable reports whether the caller may retry the whole operation.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransientStorage
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindBusinessRule:
		return http.StatusUnprocessableEntity
	case KindValidation:
		return http.StatusBadRequest
	case KindTransientStorage:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
