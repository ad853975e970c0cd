package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubmitCompletion records the caller's completion attestation with a rating and
// optional feedback. When both sides have submitted, the trade settles to COMPLETED
// in the same step. First submission wins.
func (t *Trade) SubmitCompletion(caller uuid.UUID, rating int, feedback string, now time.Time) (bool, error) {
	p, err := t.requireParty(caller)
	if err != nil {
		return false, err
	}
	if t.Status != StatusActive {
		return false, invalidStatef("completion can only be submitted on an active trade (trade is %s)", strings.ToLower(string(t.Status)))
	}
	if t.Completed(p) {
		return false, ErrAlreadySubmitted
	}
	if rating < MinRating || rating > MaxRating {
		return false, validationf("rating must be between %d and %d", MinRating, MaxRating)
	}
	feedback = strings.TrimSpace(feedback)
	if len([]rune(feedback)) > MaxFeedbackLength {
		return false, validationf("feedback exceeds %d characters", MaxFeedbackLength)
	}

	r := rating
	if p == PartyBuyer {
		t.BuyerCompleted = true
		t.BuyerRating = &r
		t.BuyerFeedback = feedback
	} else {
		t.SellerCompleted = true
		t.SellerRating = &r
		t.SellerFeedback = feedback
	}

	settled := t.BuyerCompleted && t.SellerCompleted
	if settled {
		t.Status = StatusCompleted
		done := now
		t.CompletedAt = &done
	}
	t.touch(now)
	return settled, nil
}

// RatingFor returns the rating given by p, if submitted.
func (t *Trade) RatingFor(p Party) (int, bool) {
	r := t.SellerRating
	if p == PartyBuyer {
		r = t.BuyerRating
	}
	if r == nil {
		return 0, false
	}
	return *r, true
}
