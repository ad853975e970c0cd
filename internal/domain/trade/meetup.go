package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConfirmMeetup sets the caller's meetup confirmation. The first confirmer's location
// is authoritative. Confirmations are monotonic: repeating an identical confirmation
// reports changed == false and leaves the trade untouched.
func (t *Trade) ConfirmMeetup(caller uuid.UUID, location string, now time.Time) (bool, error) {
	p, err := t.requireParty(caller)
	if err != nil {
		return false, err
	}
	if t.Status != StatusActive {
		return false, invalidStatef("meetup can only be confirmed on an active trade (trade is %s)", strings.ToLower(string(t.Status)))
	}
	if t.TradeOption == nil || *t.TradeOption != OptionMeetup {
		return false, invalidStatef("this trade is not fulfilled by meetup")
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return false, validationf("meetup location is required")
	}
	if len([]rune(location)) > MaxLocationLength {
		return false, validationf("meetup location exceeds %d characters", MaxLocationLength)
	}
	if t.MeetupLocation != "" && !sameLocation(t.MeetupLocation, location) {
		return false, ErrLocationMismatch
	}
	if t.meetupConfirmedBy(p) {
		return false, nil
	}

	if t.MeetupLocation == "" {
		t.MeetupLocation = location
	}
	if p == PartyBuyer {
		t.BuyerMeetupConfirmed = true
	} else {
		t.SellerMeetupConfirmed = true
	}
	t.touch(now)
	return true, nil
}

func (t *Trade) meetupConfirmedBy(p Party) bool {
	if p == PartyBuyer {
		return t.BuyerMeetupConfirmed
	}
	return t.SellerMeetupConfirmed
}

func sameLocation(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}
