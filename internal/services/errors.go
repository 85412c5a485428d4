package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass groups engine errors so transports can map them without knowing
// every sentinel.
type ErrorClass int

const (
	ClassInternal ErrorClass = iota
	ClassValidation
	ClassNotFound
	ClassBusiness
	ClassConflict
	ClassUnavailable
)

func (c ErrorClass) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassNotFound:
		return "not_found"
	case ClassBusiness:
		return "business"
	case ClassConflict:
		return "conflict"
	case ClassUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a classified engine error. Sentinels are compared with errors.Is.
type Error struct {
	Code  string
	Class ErrorClass
	msg   string
}

func (e *Error) Error() string { return e.msg }

func newError(class ErrorClass, code, msg string) *Error {
	return &Error{Code: code, Class: class, msg: msg}
}

// Validation
var (
	ErrInvalidAmount       = newError(ClassValidation, "invalid_amount", "amount must be a positive value in the currency's precision")
	ErrInvalidCurrency     = newError(ClassValidation, "invalid_currency", "unknown currency")
	ErrInvalidTier         = newError(ClassValidation, "invalid_tier", "unknown tier")
	ErrInvalidDuration     = newError(ClassValidation, "invalid_duration", "duration must be positive")
	ErrInvalidGiftMessage  = newError(ClassValidation, "invalid_gift_message", "gift message is not allowed")
	ErrInvalidPurchase     = newError(ClassValidation, "invalid_purchase", "purchase must grant coins or a membership")
	ErrInvalidReason       = newError(ClassValidation, "invalid_reason", "reason is required and must be at most 500 characters")
	ErrInvalidBanTerm      = newError(ClassValidation, "invalid_ban_term", "ban expiry must be in the future")
	ErrInvalidDecision     = newError(ClassValidation, "invalid_decision", "decision must be APPROVED or REJECTED")
	ErrInvalidResolution   = newError(ClassValidation, "invalid_resolution", "ban and reward require an APPROVED decision")
	ErrRewardOutOfRange    = newError(ClassValidation, "reward_out_of_range", "reward amount is outside the configured bounds")
	ErrInvalidReferralCode = newError(ClassValidation, "invalid_referral_code", "referral code does not exist")
	ErrInvalidPatch        = newError(ClassValidation, "invalid_patch", "patch contains an invalid value")
	ErrEmptyPatch          = newError(ClassValidation, "empty_patch", "patch changes nothing")
	ErrInvalidSetting      = newError(ClassValidation, "invalid_setting", "setting value does not match its type")
	ErrInvalidStatus       = newError(ClassValidation, "invalid_status", "unknown status filter")
	ErrInvalidPayment      = newError(ClassValidation, "invalid_payment", "payment capture requires an external id")
)

// Not found
var (
	ErrAccountNotFound = newError(ClassNotFound, "account_not_found", "account not found")
	ErrGiftNotFound    = newError(ClassNotFound, "gift_not_found", "gift not found")
	ErrReportNotFound  = newError(ClassNotFound, "report_not_found", "report not found")
	ErrPlanNotFound    = newError(ClassNotFound, "plan_not_found", "membership plan not found")
	ErrPackageNotFound = newError(ClassNotFound, "package_not_found", "coin package not found")
	ErrSettingNotFound = newError(ClassNotFound, "setting_not_found", "setting not found")
)

// Business rule
var (
	ErrInsufficientBalance     = newError(ClassBusiness, "insufficient_balance", "insufficient balance")
	ErrBalanceLimit            = newError(ClassBusiness, "balance_limit", "balance would exceed the maximum")
	ErrGiftTierDisabled        = newError(ClassBusiness, "gift_tier_disabled", "gift tier is disabled")
	ErrSelfGift                = newError(ClassBusiness, "self_gift", "cannot send a gift to yourself")
	ErrGiftBlocked             = newError(ClassBusiness, "gift_blocked", "receiver does not accept gifts from this sender")
	ErrNotReceiver             = newError(ClassBusiness, "not_receiver", "only the receiver can act on this gift")
	ErrAccountBanned           = newError(ClassBusiness, "account_banned", "account is banned")
	ErrRedundantMembership     = newError(ClassBusiness, "redundant_membership", "account already holds a permanent membership of this tier or higher")
	ErrProductUnavailable      = newError(ClassBusiness, "product_unavailable", "product is not available for purchase")
	ErrSelfReferral            = newError(ClassBusiness, "self_referral", "cannot apply your own referral code")
	ErrAlreadyApplied          = newError(ClassBusiness, "already_applied", "a referral code was already applied")
	ErrProfileAlreadyCompleted = newError(ClassBusiness, "profile_already_completed", "referral codes must be applied before the profile is completed")
	ErrAlreadyBanned           = newError(ClassBusiness, "already_banned", "account is already banned")
	ErrReportNotPending        = newError(ClassBusiness, "report_not_pending", "report has already been resolved")
	ErrSelfReport              = newError(ClassBusiness, "self_report", "cannot report yourself")
	ErrAlreadyBlocked          = newError(ClassBusiness, "already_blocked", "user already blocked")
	ErrSelfBlock               = newError(ClassBusiness, "self_block", "cannot block yourself")
)

// Concurrency and infrastructure
var (
	ErrConflict           = newError(ClassConflict, "conflict", "concurrent update conflict, retry the request")
	ErrStorageTimeout     = newError(ClassUnavailable, "storage_timeout", "storage did not respond in time")
	ErrStorageUnavailable = newError(ClassUnavailable, "storage_unavailable", "storage is unavailable")
	ErrAuditEncoding      = newError(ClassInternal, "audit_encoding", "audit entry could not be encoded")
)

// ContentError rejects member-supplied text. It matches ErrInvalidGiftMessage
// under errors.Is and carries the filter's reason code.
type ContentError struct {
	Reason  string
	Message string
}

func (e *ContentError) Error() string { return ErrInvalidGiftMessage.msg + ": " + e.Reason }

func (e *ContentError) Unwrap() error { return ErrInvalidGiftMessage }

// Classify returns the class of err. Unclassified errors are internal.
func Classify(err error) ErrorClass {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ClassInternal
}

// Code returns the machine-readable code of err, or "internal_error".
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}

// translateStorageError maps driver and context failures onto the engine's
// closed error set. Engine errors pass through unchanged.
func translateStorageError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrStorageTimeout
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	case isRetryable(err):
		return ErrConflict
	case strings.Contains(err.Error(), "timeout"):
		return ErrStorageTimeout
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
