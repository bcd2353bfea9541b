package loan

import "errors"

// One sentinel per failure kind; every operation surfaces these verbatim and
// leaves the record untouched when returning one.
var (
	ErrNilState                 = errors.New("loan: state not configured")
	ErrNilVault                 = errors.New("loan: custody vault not configured")
	ErrLoanNotFound             = errors.New("loan: no loan request for asset")
	ErrLoanExists               = errors.New("loan: loan request already exists for asset")
	ErrInvalidLoanDuration      = errors.New("loan: invalid loan duration")
	ErrLoanAlreadyActive        = errors.New("loan: loan is already active")
	ErrInsufficientFunds        = errors.New("loan: insufficient funds for loan")
	ErrInvalidBorrower          = errors.New("loan: invalid borrower")
	ErrInvalidLender            = errors.New("loan: invalid lender")
	ErrLoanNotActive            = errors.New("loan: loan is not active")
	ErrLoanExpired              = errors.New("loan: loan has expired")
	ErrLoanNotExpired           = errors.New("loan: loan has not expired yet")
	ErrCalculation              = errors.New("loan: calculation error")
	ErrLoanAlreadyFunded        = errors.New("loan: loan request already funded")
	ErrUnauthorizedCancellation = errors.New("loan: unauthorized loan cancellation")
	ErrInsufficientBalance      = errors.New("loan: insufficient balance")
)
