package client

import "github.com/pkg/errors"

// Eligibility errors are raised synchronously, before any network I/O.
var (
	// ErrDemoLimitReached means the demo message allowance is used up
	// and the user must sign in to continue.
	ErrDemoLimitReached = errors.New("demo limit reached, please sign in to continue")

	// ErrInsufficientBalance means the signed-in user has no message
	// credits left.
	ErrInsufficientBalance = errors.New("insufficient balance, please purchase a plan")

	// ErrNotSignedIn guards operations that need an authenticated user.
	ErrNotSignedIn = errors.New("please sign in first")

	// ErrSendInFlight means another send on the same session has not
	// finished yet.
	ErrSendInFlight = errors.New("a message is already being sent")
)

// Purchase guard errors.
var (
	ErrPlanComingSoon    = errors.New("this plan is coming soon")
	ErrPlanAlreadyActive = errors.New("this plan is already active")
	ErrPurchaseInFlight  = errors.New("purchase already in progress")
)
