package game

import (
	"errors"
	"fmt"
)

// Code is a stable identifier for a rejected instruction.
type Code string

// Instruction failure codes.
const (
	CodeNotAdjacent         Code = "NotAdjacent"
	CodeEmptyAttacker       Code = "EmptyAttacker"
	CodeEmptyDefender       Code = "EmptyDefender"
	CodeSelfAttack          Code = "SelfAttack"
	CodeInvalidCell         Code = "InvalidCell"
	CodePaused              Code = "Paused"
	CodeOverflow            Code = "Overflow"
	CodeInsufficientBalance Code = "InsufficientBalance"
	CodeUnauthorized        Code = "Unauthorized"

	CodeAlreadyInitialized   Code = "AlreadyInitialized"
	CodeNotInitialized       Code = "NotInitialized"
	CodeAccountExists        Code = "AccountExists"
	CodeAccountNotFound      Code = "AccountNotFound"
	CodeMintMismatch         Code = "MintMismatch"
	CodeUnknownMint          Code = "UnknownMint"
	CodeTokenAccountNotFound Code = "TokenAccountNotFound"
)

// Error is a game-level failure. Two errors match under errors.Is when
// their codes are equal, so callers can compare against the sentinels
// below even when the message carries extra context.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return e.Msg
}

// Is reports whether target is a game error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinel errors.
var (
	ErrNotAdjacent         = &Error{CodeNotAdjacent, "stack is not adjacent to target"}
	ErrEmptyAttacker       = &Error{CodeEmptyAttacker, "attacker stack is empty"}
	ErrEmptyDefender       = &Error{CodeEmptyDefender, "defender stack is empty"}
	ErrSelfAttack          = &Error{CodeSelfAttack, "cannot attack your own stack"}
	ErrInvalidCell         = &Error{CodeInvalidCell, "invalid cell id, must be 0 to 215"}
	ErrPaused              = &Error{CodePaused, "game is paused"}
	ErrOverflow            = &Error{CodeOverflow, "arithmetic overflow"}
	ErrInsufficientBalance = &Error{CodeInsufficientBalance, "insufficient token balance"}
	ErrUnauthorized        = &Error{CodeUnauthorized, "unauthorized"}

	ErrAlreadyInitialized   = &Error{CodeAlreadyInitialized, "game already initialized"}
	ErrNotInitialized       = &Error{CodeNotInitialized, "game not initialized"}
	ErrAccountExists        = &Error{CodeAccountExists, "account already exists"}
	ErrAccountNotFound      = &Error{CodeAccountNotFound, "account not found"}
	ErrMintMismatch         = &Error{CodeMintMismatch, "token account mint mismatch"}
	ErrUnknownMint          = &Error{CodeUnknownMint, "unknown mint"}
	ErrTokenAccountNotFound = &Error{CodeTokenAccountNotFound, "token account not found"}
)

var allErrors = []*Error{
	ErrNotAdjacent, ErrEmptyAttacker, ErrEmptyDefender, ErrSelfAttack, ErrInvalidCell,
	ErrPaused, ErrOverflow, ErrInsufficientBalance, ErrUnauthorized,
	ErrAlreadyInitialized, ErrNotInitialized, ErrAccountExists, ErrAccountNotFound,
	ErrMintMismatch, ErrUnknownMint, ErrTokenAccountNotFound,
}

// Errorf returns a copy of base with a formatted detail appended.
func Errorf(base *Error, format string, args ...any) error {
	return &Error{Code: base.Code, Msg: base.Msg + ": " + fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first game error in err's chain, or "".
func CodeOf(err error) Code {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// ParseCode maps a code name onto a known code.
func ParseCode(s string) (Code, bool) {
	for _, e := range allErrors {
		if string(e.Code) == s {
			return e.Code, true
		}
	}
	return "", false
}
