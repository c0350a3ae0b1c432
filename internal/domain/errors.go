package domain

import "errors"

var (
	// ErrValidation marks a failed precondition: wrong rank, missing
	// territory, occupied building slots. No state is mutated.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientFunds marks a debit attempt exceeding the balance.
	// No state is mutated.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrExternalStore marks a failure from the territory-backing store.
	// Any fund movement already applied has been reversed.
	ErrExternalStore = errors.New("territory store operation failed")

	// ErrFrozen marks a territory-mutating operation attempted while the
	// territory is frozen for unpaid debt.
	ErrFrozen = errors.New("territory is frozen")

	// ErrNotFound marks a missing sect or claim
	ErrNotFound = errors.New("not found")
)
