package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SelectOption records the buyer's fulfillment option. On an accepted trade a valid
// option locks the trade into ACTIVE. Re-selecting the current option on a trade that
// cannot lock yet reports changed == false.
func (t *Trade) SelectOption(caller uuid.UUID, option Option, address string, now time.Time) (bool, error) {
	p, err := t.requireParty(caller)
	if err != nil {
		return false, err
	}
	if p != PartyBuyer {
		return false, forbiddenf("only the buyer can choose the fulfillment option")
	}
	if !t.optionEditable() {
		return false, invalidStatef("the fulfillment option can no longer be chosen (trade is %s)", strings.ToLower(string(t.Status)))
	}
	if t.OptionChangeRequest != nil {
		return false, ErrPendingChangeExists
	}
	address = strings.TrimSpace(address)
	changed := false
	if t.TradeOption != nil {
		if *t.TradeOption != option || (option == OptionDelivery && address != "" && address != t.DeliveryAddress) {
			return false, invalidStatef("an option is already chosen; request an option change instead")
		}
	} else {
		if err := validateOption(option, address); err != nil {
			return false, err
		}
		opt := option
		t.TradeOption = &opt
		t.DeliveryAddress = ""
		if option == OptionDelivery {
			t.DeliveryAddress = address
		}
		changed = true
	}

	if t.Status == StatusAccepted && t.lockable() {
		t.activate(now)
		changed = true
	}
	if changed {
		t.touch(now)
	}
	return changed, nil
}

// RequestOptionChange opens the buyer's request to switch the fulfillment option.
func (t *Trade) RequestOptionChange(caller uuid.UUID, option Option, address string, now time.Time) error {
	p, err := t.requireParty(caller)
	if err != nil {
		return err
	}
	if p != PartyBuyer {
		return forbiddenf("only the buyer can request an option change")
	}
	if !t.optionEditable() {
		return invalidStatef("the fulfillment option is locked (trade is %s)", strings.ToLower(string(t.Status)))
	}
	if t.OptionChangeRequest != nil {
		return ErrPendingChangeExists
	}
	if t.TradeOption == nil {
		return invalidStatef("no fulfillment option has been chosen yet")
	}
	address = strings.TrimSpace(address)
	if err := validateOption(option, address); err != nil {
		return err
	}
	if option == *t.TradeOption && (option == OptionMeetup || address == t.DeliveryAddress) {
		return validationf("requested option matches the current one")
	}
	req := &OptionChangeRequest{
		RequestedOption: option,
		RequestedBy:     caller,
		RequestedAt:     now,
	}
	if option == OptionDelivery {
		req.RequestedDeliveryAddress = address
	}
	t.OptionChangeRequest = req
	t.touch(now)
	return nil
}

// ApproveOptionChange applies the outstanding request atomically and clears it.
func (t *Trade) ApproveOptionChange(caller uuid.UUID, now time.Time) error {
	if err := t.requireSellerDecision(caller, "approve"); err != nil {
		return err
	}
	req := t.OptionChangeRequest
	opt := req.RequestedOption
	t.TradeOption = &opt
	t.DeliveryAddress = ""
	if opt == OptionDelivery {
		t.DeliveryAddress = req.RequestedDeliveryAddress
	}
	t.OptionChangeRequest = nil
	t.resetMeetup()
	t.touch(now)
	return nil
}

// RejectOptionChange discards the outstanding request; the original option stands.
func (t *Trade) RejectOptionChange(caller uuid.UUID, now time.Time) error {
	if err := t.requireSellerDecision(caller, "reject"); err != nil {
		return err
	}
	t.OptionChangeRequest = nil
	t.touch(now)
	return nil
}

func (t *Trade) requireSellerDecision(caller uuid.UUID, verb string) error {
	p, err := t.requireParty(caller)
	if err != nil {
		return err
	}
	if p != PartySeller {
		return forbiddenf("only the seller can %s an option change", verb)
	}
	if !t.optionEditable() {
		return invalidStatef("the fulfillment option is locked (trade is %s)", strings.ToLower(string(t.Status)))
	}
	if t.OptionChangeRequest == nil {
		return invalidStatef("there is no pending option change request")
	}
	return nil
}

// optionEditable is true while the option has not been locked by activation.
func (t *Trade) optionEditable() bool {
	switch t.Status {
	case StatusPending, StatusCountered, StatusAccepted:
		return true
	}
	return false
}

// lockable reports whether the trade carries a complete, uncontested option.
func (t *Trade) lockable() bool {
	if t.TradeOption == nil || t.OptionChangeRequest != nil {
		return false
	}
	return validateOption(*t.TradeOption, t.DeliveryAddress) == nil
}

// activate is the option lock.
func (t *Trade) activate(now time.Time) {
	t.Status = StatusActive
	activated := now
	t.ActivatedAt = &activated
}

func (t *Trade) resetMeetup() {
	t.MeetupLocation = ""
	t.BuyerMeetupConfirmed = false
	t.SellerMeetupConfirmed = false
}
