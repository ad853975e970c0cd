package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Terms is a replacement proposal carried by a counter.
type Terms struct {
	Items             []Item          `json:"items"`
	OfferedCashAmount decimal.Decimal `json:"offeredCashAmount"`
	Message           string          `json:"message,omitempty"`
}

// CurrentTerms returns the terms presently on the table.
func (t *Trade) CurrentTerms() Terms {
	return Terms{
		Items:             cloneItems(t.Items),
		OfferedCashAmount: t.OfferedCashAmount,
		Message:           t.Message,
	}
}

// Accept moves a pending trade to ACCEPTED. When autoLock is set and the buyer
// already chose a valid option, the trade is locked into ACTIVE in the same step.
func (t *Trade) Accept(caller uuid.UUID, autoLock bool, now time.Time) error {
	p, err := t.requireParty(caller)
	if err != nil {
		return err
	}
	if p != PartySeller {
		return forbiddenf("only the seller can accept this offer")
	}
	if t.Status != StatusPending {
		return invalidStatef("only pending offers can be accepted (trade is %s)", strings.ToLower(string(t.Status)))
	}
	if len(t.BuyerItems()) == 0 && !t.OfferedCashAmount.IsPositive() {
		return ErrInvalidOffer
	}

	t.Status = StatusAccepted
	accepted := now
	t.AcceptedAt = &accepted
	if autoLock && t.lockable() {
		t.activate(now)
	}
	t.touch(now)
	return nil
}

// Decline terminates a pending trade.
func (t *Trade) Decline(caller uuid.UUID, now time.Time) error {
	p, err := t.requireParty(caller)
	if err != nil {
		return err
	}
	if p != PartySeller {
		return forbiddenf("only the seller can decline this offer")
	}
	if t.Status != StatusPending {
		return invalidStatef("only pending offers can be declined (trade is %s)", strings.ToLower(string(t.Status)))
	}
	t.Status = StatusDeclined
	t.OptionChangeRequest = nil
	t.touch(now)
	return nil
}

// Counter replaces the terms on the table and hands the turn to the other side.
// The seller counters a PENDING trade; the buyer re-proposes on a COUNTERED one.
func (t *Trade) Counter(caller uuid.UUID, terms Terms, now time.Time) error {
	p, err := t.CheckCounter(caller)
	if err != nil {
		return err
	}
	if err := validateTerms(t.TargetProductID, terms.Items, terms.OfferedCashAmount, terms.Message); err != nil {
		return err
	}

	t.Items = cloneItems(terms.Items)
	t.OfferedCashAmount = terms.OfferedCashAmount
	t.Message = strings.TrimSpace(terms.Message)
	if p == PartySeller {
		t.Status = StatusCountered
	} else {
		t.Status = StatusPending
	}
	t.touch(now)
	return nil
}

// CheckCounter runs every counter precondition that does not depend on the new
// terms and returns the caller's side.
func (t *Trade) CheckCounter(caller uuid.UUID) (Party, error) {
	p, err := t.requireParty(caller)
	if err != nil {
		return "", err
	}
	if err := t.requireNotTerminal(); err != nil {
		return "", err
	}
	awaiting, ok := t.AwaitingParty()
	if !ok {
		return "", invalidStatef("terms can only be countered while the trade is being negotiated")
	}
	if awaiting != p {
		return "", forbiddenf("it is not your turn to respond to this offer")
	}
	return p, nil
}

// Cancel aborts any non-terminal trade.
func (t *Trade) Cancel(caller uuid.UUID, reason string, now time.Time) error {
	if _, err := t.requireParty(caller); err != nil {
		return err
	}
	if err := t.requireNotTerminal(); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if len([]rune(reason)) > MaxMessageLength {
		return validationf("cancel reason exceeds %d characters", MaxMessageLength)
	}
	by := caller
	t.Status = StatusCancelled
	t.CancelledBy = &by
	t.CancelReason = reason
	t.OptionChangeRequest = nil
	t.touch(now)
	return nil
}
