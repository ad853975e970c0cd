package trade

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrade_Accept(t *testing.T) {
	f := newFixture()

	t.Run("seller accepts", func(t *testing.T) {
		tr := f.propose(t, optionPtr(OptionMeetup), "")
		require.NoError(t, tr.Accept(f.seller, false, testNow))
		assert.Equal(t, StatusAccepted, tr.Status)
		assert.NotNil(t, tr.AcceptedAt)
		assert.Nil(t, tr.ActivatedAt)
		assert.Equal(t, int64(2), tr.Version)
	})

	t.Run("auto lock activates", func(t *testing.T) {
		tr := f.propose(t, optionPtr(OptionMeetup), "")
		require.NoError(t, tr.Accept(f.seller, true, testNow))
		assert.Equal(t, StatusActive, tr.Status)
		assert.NotNil(t, tr.ActivatedAt)
		assert.True(t, tr.OptionLocked())
	})

	t.Run("auto lock waits without option", func(t *testing.T) {
		tr := f.propose(t, nil, "")
		require.NoError(t, tr.Accept(f.seller, true, testNow))
		assert.Equal(t, StatusAccepted, tr.Status)
	})

	t.Run("buyer is forbidden in every state", func(t *testing.T) {
		for _, s := range []Status{StatusPending, StatusAccepted, StatusActive, StatusCompleted} {
			tr := f.propose(t, optionPtr(OptionMeetup), "")
			tr.Status = s
			err := tr.Accept(f.buyer, false, testNow)
			assert.ErrorIs(t, err, ErrForbidden, "status %s", s)
			err = tr.Decline(f.buyer, testNow)
			assert.ErrorIs(t, err, ErrForbidden, "status %s", s)
		}
	})

	t.Run("non participant is forbidden", func(t *testing.T) {
		tr := f.propose(t, nil, "")
		assert.ErrorIs(t, tr.Accept(f.stranger, false, testNow), ErrForbidden)
		assert.ErrorIs(t, tr.Accept(uuid.Nil, false, testNow), ErrForbidden)
	})

	t.Run("seller on non pending is invalid state", func(t *testing.T) {
		for _, s := range []Status{StatusAccepted, StatusDeclined, StatusCountered, StatusActive, StatusCompleted, StatusCancelled} {
			tr := f.propose(t, nil, "")
			tr.Status = s
			before := tr.Clone()
			err := tr.Accept(f.seller, false, testNow)
			assert.ErrorIs(t, err, ErrInvalidState, "status %s", s)
			assert.Equal(t, before, tr)
		}
	})

	t.Run("empty offer cannot be accepted", func(t *testing.T) {
		tr := f.propose(t, nil, "")
		tr.Items = nil
		assert.ErrorIs(t, tr.Accept(f.seller, false, testNow), ErrInvalidOffer)
		assert.Equal(t, StatusPending, tr.Status)
	})
}

func TestTrade_Decline(t *testing.T) {
	f := newFixture()
	tr := f.propose(t, nil, "")

	require.NoError(t, tr.Decline(f.seller, testNow))
	assert.Equal(t, StatusDeclined, tr.Status)
	assert.True(t, tr.Status.IsTerminal())

	assert.ErrorIs(t, tr.Decline(f.seller, testNow), ErrInvalidState)
	assert.ErrorIs(t, tr.Cancel(f.buyer, "", testNow), ErrInvalidState)
}

func TestTrade_Counter(t *testing.T) {
	f := newFixture()
	sellerExtra := uuid.New()

	t.Run("seller counters then buyer re-proposes", func(t *testing.T) {
		tr := f.propose(t, optionPtr(OptionMeetup), "")

		err := tr.Counter(f.seller, Terms{
			Items: []Item{
				{ProductID: f.offered, OfferedBy: PartyBuyer},
				{ProductID: sellerExtra, OfferedBy: PartySeller},
			},
			OfferedCashAmount: decimal.NewFromInt(100),
			Message:           "add some cash",
		}, testNow)
		require.NoError(t, err)
		assert.Equal(t, StatusCountered, tr.Status)
		assert.Len(t, tr.SellerItems(), 1)
		assert.True(t, tr.OfferedCashAmount.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, OptionMeetup, *tr.TradeOption)

		awaiting, ok := tr.AwaitingParty()
		require.True(t, ok)
		assert.Equal(t, PartyBuyer, awaiting)

		// seller cannot act on its own counter
		assert.ErrorIs(t, tr.Counter(f.seller, tr.CurrentTerms(), testNow), ErrForbidden)
		assert.ErrorIs(t, tr.Accept(f.seller, false, testNow), ErrInvalidState)

		require.NoError(t, tr.Counter(f.buyer, Terms{
			Items:             []Item{{ProductID: f.offered, OfferedBy: PartyBuyer}},
			OfferedCashAmount: decimal.NewFromInt(50),
		}, testNow))
		assert.Equal(t, StatusPending, tr.Status)
		assert.Equal(t, int64(3), tr.Version)

		require.NoError(t, tr.Accept(f.seller, false, testNow))
	})

	t.Run("buyer cannot counter a pending trade", func(t *testing.T) {
		tr := f.propose(t, nil, "")
		err := tr.Counter(f.buyer, tr.CurrentTerms(), testNow)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("counter after accept is invalid", func(t *testing.T) {
		tr := f.propose(t, nil, "")
		require.NoError(t, tr.Accept(f.seller, false, testNow))
		assert.ErrorIs(t, tr.Counter(f.seller, tr.CurrentTerms(), testNow), ErrInvalidState)
	})

	t.Run("counter must offer something", func(t *testing.T) {
		tr := f.propose(t, nil, "")
		before := tr.Clone()
		err := tr.Counter(f.seller, Terms{
			Items: []Item{{ProductID: sellerExtra, OfferedBy: PartySeller}},
		}, testNow)
		assert.ErrorIs(t, err, ErrInvalidOffer)
		assert.Equal(t, before, tr)
	})

	t.Run("counter cash beyond storable precision", func(t *testing.T) {
		tr := f.propose(t, nil, "")
		before := tr.Clone()
		err := tr.Counter(f.seller, Terms{OfferedCashAmount: decimal.RequireFromString("10.005")}, testNow)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, before, tr)
	})
}

func TestTrade_Cancel(t *testing.T) {
	f := newFixture()

	for _, s := range []Status{StatusPending, StatusCountered, StatusAccepted, StatusActive} {
		t.Run(string(s), func(t *testing.T) {
			tr := f.propose(t, optionPtr(OptionMeetup), "")
			tr.Status = s
			require.NoError(t, tr.Cancel(f.buyer, "changed my mind", testNow))
			assert.Equal(t, StatusCancelled, tr.Status)
			require.NotNil(t, tr.CancelledBy)
			assert.Equal(t, f.buyer, *tr.CancelledBy)
			assert.Equal(t, "changed my mind", tr.CancelReason)
		})
	}

	t.Run("stranger", func(t *testing.T) {
		tr := f.propose(t, nil, "")
		assert.ErrorIs(t, tr.Cancel(f.stranger, "", testNow), ErrForbidden)
	})
}

func TestTrade_SelectOption(t *testing.T) {
	f := newFixture()

	t.Run("accepted trade locks on selection", func(t *testing.T) {
		tr := f.propose(t, nil, "")
		require.NoError(t, tr.Accept(f.seller, false, testNow))

		changed, err := tr.SelectOption(f.buyer, OptionDelivery, " 123 Main St ", testNow)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, StatusActive, tr.Status)
		assert.Equal(t, "123 Main St", tr.DeliveryAddress)
	})

	t.Run("confirming carried option locks", func(t *testing.T) {
		tr := f.propose(t, optionPtr(OptionMeetup), "")
		require.NoError(t, tr.Accept(f.seller, false, testNow))

		changed, err := tr.SelectOption(f.buyer, OptionMeetup, "", testNow)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, StatusActive, tr.Status)
	})

	t.Run("reselect while pending is a no-op", func(t *testing.T) {
		tr := f.propose(t, optionPtr(OptionMeetup), "")
		changed, err := tr.SelectOption(f.buyer, OptionMeetup, "", testNow)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, int64(1), tr.Version)
	})

	t.Run("different option needs change request", func(t *testing.T) {
		tr := f.propose(t, optionPtr(OptionMeetup), "")
		_, err := tr.SelectOption(f.buyer, OptionDelivery, "123 Main St", testNow)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("seller forbidden", func(t *testing.T) {
		tr := f.propose(t, nil, "")
		_, err := tr.SelectOption(f.seller, OptionMeetup, "", testNow)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("locked once active", func(t *testing.T) {
		tr := f.active(t, OptionMeetup)
		_, err := tr.SelectOption(f.buyer, OptionMeetup, "", testNow)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("delivery needs address", func(t *testing.T) {
		tr := f.propose(t, nil, "")
		_, err := tr.SelectOption(f.buyer, OptionDelivery, "  ", testNow)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Nil(t, tr.TradeOption)
	})

	t.Run("outstanding request blocks lock", func(t *testing.T) {
		tr := f.propose(t, optionPtr(OptionMeetup), "")
		require.NoError(t, tr.RequestOptionChange(f.buyer, OptionDelivery, "123 Main St", testNow))
		require.NoError(t, tr.Accept(f.seller, true, testNow))
		assert.Equal(t, StatusAccepted, tr.Status)

		_, err := tr.SelectOption(f.buyer, OptionMeetup, "", testNow)
		assert.ErrorIs(t, err, ErrPendingChangeExists)
	})
}

func TestTrade_OptionChange(t *testing.T) {
	f := newFixture()

	accepted := func(t *testing.T) *Trade {
		tr := f.propose(t, optionPtr(OptionMeetup), "")
		require.NoError(t, tr.Accept(f.seller, false, testNow))
		return tr
	}

	t.Run("approve overwrites option", func(t *testing.T) {
		tr := accepted(t)
		require.NoError(t, tr.RequestOptionChange(f.buyer, OptionDelivery, "123 Main St", testNow))
		require.NotNil(t, tr.OptionChangeRequest)
		assert.Equal(t, f.buyer, tr.OptionChangeRequest.RequestedBy)

		require.NoError(t, tr.ApproveOptionChange(f.seller, testNow))
		assert.Equal(t, OptionDelivery, *tr.TradeOption)
		assert.Equal(t, "123 Main St", tr.DeliveryAddress)
		assert.Nil(t, tr.OptionChangeRequest)
		assert.Equal(t, StatusAccepted, tr.Status)

		changed, err := tr.SelectOption(f.buyer, OptionDelivery, "", testNow)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, StatusActive, tr.Status)
	})

	t.Run("approve back to meetup clears address", func(t *testing.T) {
		tr := f.propose(t, optionPtr(OptionDelivery), "123 Main St")
		require.NoError(t, tr.RequestOptionChange(f.buyer, OptionMeetup, "", testNow))
		require.NoError(t, tr.ApproveOptionChange(f.seller, testNow))
		assert.Equal(t, OptionMeetup, *tr.TradeOption)
		assert.Empty(t, tr.DeliveryAddress)
	})

	t.Run("only one outstanding request", func(t *testing.T) {
		tr := accepted(t)
		require.NoError(t, tr.RequestOptionChange(f.buyer, OptionDelivery, "123 Main St", testNow))
		err := tr.RequestOptionChange(f.buyer, OptionDelivery, "456 Side St", testNow)
		assert.ErrorIs(t, err, ErrPendingChangeExists)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Equal(t, "123 Main St", tr.OptionChangeRequest.RequestedDeliveryAddress)
	})

	t.Run("delivery request needs address", func(t *testing.T) {
		tr := accepted(t)
		assert.ErrorIs(t, tr.RequestOptionChange(f.buyer, OptionDelivery, "", testNow), ErrValidation)
		assert.Nil(t, tr.OptionChangeRequest)
	})

	t.Run("request must change something", func(t *testing.T) {
		tr := accepted(t)
		assert.ErrorIs(t, tr.RequestOptionChange(f.buyer, OptionMeetup, "", testNow), ErrValidation)
	})

	t.Run("address change on delivery", func(t *testing.T) {
		tr := f.propose(t, optionPtr(OptionDelivery), "123 Main St")
		require.NoError(t, tr.RequestOptionChange(f.buyer, OptionDelivery, "456 Side St", testNow))
	})

	t.Run("seller cannot request", func(t *testing.T) {
		tr := accepted(t)
		assert.ErrorIs(t, tr.RequestOptionChange(f.seller, OptionDelivery, "x", testNow), ErrForbidden)
	})

	t.Run("buyer cannot decide", func(t *testing.T) {
		tr := accepted(t)
		require.NoError(t, tr.RequestOptionChange(f.buyer, OptionDelivery, "123 Main St", testNow))
		assert.ErrorIs(t, tr.ApproveOptionChange(f.buyer, testNow), ErrForbidden)
		assert.ErrorIs(t, tr.RejectOptionChange(f.buyer, testNow), ErrForbidden)
	})

	t.Run("no request outstanding", func(t *testing.T) {
		tr := accepted(t)
		assert.ErrorIs(t, tr.ApproveOptionChange(f.seller, testNow), ErrInvalidState)
		assert.ErrorIs(t, tr.RejectOptionChange(f.seller, testNow), ErrInvalidState)
	})

	t.Run("never once active", func(t *testing.T) {
		tr := f.active(t, OptionMeetup)
		err := tr.RequestOptionChange(f.buyer, OptionDelivery, "123 Main St", testNow)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Equal(t, OptionMeetup, *tr.TradeOption)
	})

	t.Run("no option chosen yet", func(t *testing.T) {
		tr := f.propose(t, nil, "")
		assert.ErrorIs(t, tr.RequestOptionChange(f.buyer, OptionMeetup, "", testNow), ErrInvalidState)
	})

	t.Run("decline clears request", func(t *testing.T) {
		tr := f.propose(t, optionPtr(OptionMeetup), "")
		require.NoError(t, tr.RequestOptionChange(f.buyer, OptionDelivery, "123 Main St", testNow))
		require.NoError(t, tr.Decline(f.seller, testNow))
		assert.Nil(t, tr.OptionChangeRequest)
	})
}

func TestTrade_ConfirmMeetup(t *testing.T) {
	f := newFixture()

	t.Run("first confirmer sets location", func(t *testing.T) {
		tr := f.active(t, OptionMeetup)
		changed, err := tr.ConfirmMeetup(f.seller, "  Starbucks, BGC ", testNow)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "Starbucks, BGC", tr.MeetupLocation)
		assert.True(t, tr.SellerMeetupConfirmed)
		assert.False(t, tr.BuyerMeetupConfirmed)
	})

	t.Run("repeat confirmation is a no-op", func(t *testing.T) {
		tr := f.active(t, OptionMeetup)
		_, err := tr.ConfirmMeetup(f.buyer, "Starbucks, BGC", testNow)
		require.NoError(t, err)
		before := tr.Clone()

		changed, err := tr.ConfirmMeetup(f.buyer, "Starbucks, BGC", testNow)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, before, tr)
	})

	t.Run("location mismatch", func(t *testing.T) {
		tr := f.active(t, OptionMeetup)
		_, err := tr.ConfirmMeetup(f.buyer, "Starbucks, BGC", testNow)
		require.NoError(t, err)

		_, err = tr.ConfirmMeetup(f.seller, "Jollibee, Makati", testNow)
		assert.ErrorIs(t, err, ErrLocationMismatch)
		assert.False(t, tr.SellerMeetupConfirmed)

		_, err = tr.ConfirmMeetup(f.seller, "starbucks,  bgc", testNow)
		require.NoError(t, err)
		assert.True(t, tr.MeetupConfirmed())
		assert.Equal(t, "Starbucks, BGC", tr.MeetupLocation)
	})

	t.Run("requires active meetup trade", func(t *testing.T) {
		tr := f.propose(t, optionPtr(OptionMeetup), "")
		_, err := tr.ConfirmMeetup(f.buyer, "Starbucks, BGC", testNow)
		assert.ErrorIs(t, err, ErrInvalidState)

		tr = f.active(t, OptionDelivery)
		_, err = tr.ConfirmMeetup(f.buyer, "Starbucks, BGC", testNow)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("empty location", func(t *testing.T) {
		tr := f.active(t, OptionMeetup)
		_, err := tr.ConfirmMeetup(f.buyer, " ", testNow)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("stranger", func(t *testing.T) {
		tr := f.active(t, OptionMeetup)
		_, err := tr.ConfirmMeetup(f.stranger, "Starbucks, BGC", testNow)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestTrade_SubmitCompletion(t *testing.T) {
	f := newFixture()

	t.Run("rating bounds", func(t *testing.T) {
		tests := []struct {
			rating int
			valid  bool
		}{
			{0, false},
			{1, true},
			{5, true},
			{6, false},
			{-1, false},
		}
		for _, tt := range tests {
			tr := f.active(t, OptionMeetup)
			_, err := tr.SubmitCompletion(f.buyer, tt.rating, "", testNow)
			if tt.valid {
				assert.NoError(t, err, "rating %d", tt.rating)
			} else {
				assert.ErrorIs(t, err, ErrValidation, "rating %d", tt.rating)
				assert.False(t, tr.BuyerCompleted)
			}
		}
	})

	t.Run("first submission wins", func(t *testing.T) {
		tr := f.active(t, OptionMeetup)
		_, err := tr.SubmitCompletion(f.buyer, 5, "smooth", testNow)
		require.NoError(t, err)

		_, err = tr.SubmitCompletion(f.buyer, 1, "changed", testNow)
		assert.ErrorIs(t, err, ErrAlreadySubmitted)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Equal(t, 5, *tr.BuyerRating)
		assert.Equal(t, "smooth", tr.BuyerFeedback)
	})

	t.Run("dual completion settles", func(t *testing.T) {
		tr := f.active(t, OptionDelivery)
		settled, err := tr.SubmitCompletion(f.buyer, 5, "", testNow)
		require.NoError(t, err)
		assert.False(t, settled)
		assert.Equal(t, StatusActive, tr.Status)

		settled, err = tr.SubmitCompletion(f.seller, 3, "late", testNow)
		require.NoError(t, err)
		assert.True(t, settled)
		assert.Equal(t, StatusCompleted, tr.Status)
		assert.NotNil(t, tr.CompletedAt)
		assert.True(t, tr.Progress().Settled)
	})

	t.Run("only while active", func(t *testing.T) {
		tr := f.propose(t, optionPtr(OptionMeetup), "")
		require.NoError(t, tr.Accept(f.seller, false, testNow))
		_, err := tr.SubmitCompletion(f.buyer, 5, "", testNow)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.False(t, tr.BuyerCompleted)
	})

	t.Run("feedback too long", func(t *testing.T) {
		tr := f.active(t, OptionMeetup)
		long := make([]rune, MaxFeedbackLength+1)
		for i := range long {
			long[i] = 'x'
		}
		_, err := tr.SubmitCompletion(f.buyer, 4, string(long), testNow)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestScenarios(t *testing.T) {
	t.Run("A: meetup trade settles", func(t *testing.T) {
		f := newFixture()
		tr := f.propose(t, optionPtr(OptionMeetup), "")
		require.True(t, tr.OfferedCashAmount.IsZero())

		require.NoError(t, tr.Accept(f.seller, false, testNow))
		assert.Equal(t, StatusAccepted, tr.Status)
		_, err := tr.SelectOption(f.buyer, OptionMeetup, "", testNow)
		require.NoError(t, err)
		assert.Equal(t, StatusActive, tr.Status)

		_, err = tr.ConfirmMeetup(f.buyer, "Starbucks, BGC", testNow)
		require.NoError(t, err)
		_, err = tr.ConfirmMeetup(f.seller, "Starbucks, BGC", testNow)
		require.NoError(t, err)
		assert.True(t, tr.MeetupConfirmed())

		_, err = tr.SubmitCompletion(f.buyer, 5, "", testNow)
		require.NoError(t, err)
		_, err = tr.SubmitCompletion(f.seller, 4, "", testNow)
		require.NoError(t, err)

		assert.Equal(t, StatusCompleted, tr.Status)
		assert.Equal(t, 5, *tr.BuyerRating)
		assert.Equal(t, 4, *tr.SellerRating)
	})

	t.Run("B: rejected change keeps meetup", func(t *testing.T) {
		f := newFixture()
		tr := f.propose(t, optionPtr(OptionMeetup), "")
		require.NoError(t, tr.Accept(f.seller, false, testNow))

		require.NoError(t, tr.RequestOptionChange(f.buyer, OptionDelivery, "123 Main St", testNow))
		require.NoError(t, tr.RejectOptionChange(f.seller, testNow))

		assert.Equal(t, OptionMeetup, *tr.TradeOption)
		assert.Nil(t, tr.OptionChangeRequest)
		assert.Empty(t, tr.DeliveryAddress)
	})

	t.Run("C: double accept", func(t *testing.T) {
		f := newFixture()
		tr := f.propose(t, nil, "")
		require.NoError(t, tr.Accept(f.seller, false, testNow))
		assert.ErrorIs(t, tr.Accept(f.seller, false, testNow), ErrInvalidState)
		assert.Equal(t, StatusAccepted, tr.Status)
	})
}
