package domain

import (
	"errors"
	"fmt"
)

// 三类错误的根，具体错误都包裹其中之一，调用方用 errors.Is 判断类别。
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// 校验错误：在任何发现工作开始之前同步返回。
var (
	ErrMissingBusinessID       = fmt.Errorf("%w: business id is required", ErrValidation)
	ErrMissingAmount           = fmt.Errorf("%w: amount or subtotal is required", ErrValidation)
	ErrInvalidAmount           = fmt.Errorf("%w: amount must be numeric", ErrValidation)
	ErrInvalidWeights          = fmt.Errorf("%w: allocation weights must sum to 1.0", ErrValidation)
	ErrNoLineItems             = fmt.Errorf("%w: at least one line item is required", ErrValidation)
	ErrNegativeDiscount        = fmt.Errorf("%w: discount amount cannot be negative", ErrValidation)
	ErrUnknownAllocation       = fmt.Errorf("%w: unknown allocation method", ErrValidation)
	ErrInvalidDecision         = fmt.Errorf("%w: decision must be approve or reject", ErrValidation)
	ErrMissingApprover         = fmt.Errorf("%w: approver id is required", ErrValidation)
	ErrMissingDiscountRef      = fmt.Errorf("%w: allocation needs a discount rule id or a promotional discount id", ErrValidation)
	ErrAllocationTotalMismatch = fmt.Errorf("%w: allocated lines do not reconcile with the total discount", ErrValidation)
	ErrNothingToApprove        = fmt.Errorf("%w: no discount applies to this transaction", ErrValidation)
)

// 未找到：所有查询都按商户隔离。
var (
	ErrApprovalNotFound   = fmt.Errorf("%w: approval request", ErrNotFound)
	ErrAllocationNotFound = fmt.Errorf("%w: allocation", ErrNotFound)
	ErrCandidateNotFound  = fmt.Errorf("%w: discount candidate", ErrNotFound)
)

// 冲突错误。
var (
	ErrApprovalAlreadyDecided   = fmt.Errorf("%w: approval request has already been decided", ErrConflict)
	ErrApprovalRejected         = fmt.Errorf("%w: approval request was rejected", ErrConflict)
	ErrApprovalMismatch         = fmt.Errorf("%w: approval request does not match this transaction", ErrConflict)
	ErrStackingConflict         = fmt.Errorf("%w: discounts cannot be stacked in strict mode", ErrConflict)
	ErrAllocationNumberConflict = fmt.Errorf("%w: allocation number already exists", ErrConflict)
)

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
