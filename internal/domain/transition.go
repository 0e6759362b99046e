package domain

type Role string

const (
	RoleNone     Role = ""
	RoleOwner    Role = "owner"
	RoleBorrower Role = "borrower"
)

// Effect is the ledger movement bound to a transition.
type Effect int

const (
	EffectNone Effect = iota
	// EffectCollectPayment debits the borrower fee+deposit as one PAYMENT.
	EffectCollectPayment
	// EffectSettle refunds the deposit to the borrower and pays the fee to the owner.
	EffectSettle
)

type Transition struct {
	From RentalStatus
	To   RentalStatus
}

type TransitionRule struct {
	Actor  Role
	Effect Effect
}

var transitions = map[Transition]TransitionRule{
	{RentalStatusRequested, RentalStatusAccepted}:  {Actor: RoleOwner},
	{RentalStatusRequested, RentalStatusCancelled}: {Actor: RoleBorrower},
	{RentalStatusAccepted, RentalStatusPaid}:       {Actor: RoleBorrower, Effect: EffectCollectPayment},
	{RentalStatusPaid, RentalStatusRenting}:        {Actor: RoleOwner},
	{RentalStatusRenting, RentalStatusReturned}:    {Actor: RoleBorrower},
	{RentalStatusReturned, RentalStatusCompleted}:  {Actor: RoleOwner, Effect: EffectSettle},
}

// LookupTransition returns the rule for from -> to, if the table has one.
func LookupTransition(from, to RentalStatus) (TransitionRule, bool) {
	rule, ok := transitions[Transition{From: from, To: to}]
	return rule, ok
}

// NextStatuses lists the statuses reachable from s in one step.
func NextStatuses(s RentalStatus) []RentalStatus {
	var next []RentalStatus
	for _, to := range AllRentalStatuses {
		if _, ok := LookupTransition(s, to); ok {
			next = append(next, to)
		}
	}
	return next
}

// ActiveStatuses are counted as open rentals in admin stats.
var ActiveStatuses = []RentalStatus{RentalStatusRequested, RentalStatusPaid, RentalStatusRenting}

// HeldStatuses are the statuses in which the platform holds fee and deposit.
var HeldStatuses = []RentalStatus{RentalStatusPaid, RentalStatusRenting}
