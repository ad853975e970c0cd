package trade

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type fixture struct {
	buyer    uuid.UUID
	seller   uuid.UUID
	stranger uuid.UUID
	target   uuid.UUID
	offered  uuid.UUID
}

func newFixture() fixture {
	return fixture{
		buyer:    uuid.New(),
		seller:   uuid.New(),
		stranger: uuid.New(),
		target:   uuid.New(),
		offered:  uuid.New(),
	}
}

func optionPtr(o Option) *Option { return &o }

func (f fixture) propose(t *testing.T, opt *Option, address string) *Trade {
	t.Helper()
	tr, err := NewTrade(ProposeInput{
		BuyerID:         f.buyer,
		SellerID:        f.seller,
		TargetProductID: f.target,
		Items:           []Item{{ProductID: f.offered, OfferedBy: PartyBuyer}},
		Message:         "swap?",
		TradeOption:     opt,
		DeliveryAddress: address,
	}, testNow)
	require.NoError(t, err)
	return tr
}

func (f fixture) active(t *testing.T, opt Option) *Trade {
	t.Helper()
	address := ""
	if opt == OptionDelivery {
		address = "123 Main St"
	}
	tr := f.propose(t, optionPtr(opt), address)
	require.NoError(t, tr.Accept(f.seller, true, testNow))
	require.Equal(t, StatusActive, tr.Status)
	return tr
}

func TestNewTrade(t *testing.T) {
	f := newFixture()

	t.Run("creates pending trade", func(t *testing.T) {
		tr := f.propose(t, optionPtr(OptionMeetup), "")

		assert.NotEqual(t, uuid.Nil, tr.TradeID)
		assert.Equal(t, StatusPending, tr.Status)
		assert.Equal(t, int64(1), tr.Version)
		assert.Equal(t, testNow, tr.CreatedAt)
		require.NotNil(t, tr.TradeOption)
		assert.Equal(t, OptionMeetup, *tr.TradeOption)
		assert.Empty(t, tr.DeliveryAddress)
		assert.Len(t, tr.BuyerItems(), 1)
		assert.Empty(t, tr.SellerItems())
	})

	t.Run("cash only offer", func(t *testing.T) {
		tr, err := NewTrade(ProposeInput{
			BuyerID:           f.buyer,
			SellerID:          f.seller,
			TargetProductID:   f.target,
			OfferedCashAmount: decimal.RequireFromString("250.50"),
		}, testNow)
		require.NoError(t, err)
		assert.Empty(t, tr.Items)
		assert.Nil(t, tr.TradeOption)
	})

	t.Run("cash precision", func(t *testing.T) {
		cashOnly := func(amount string) error {
			_, err := NewTrade(ProposeInput{
				BuyerID:           f.buyer,
				SellerID:          f.seller,
				TargetProductID:   f.target,
				OfferedCashAmount: decimal.RequireFromString(amount),
			}, testNow)
			return err
		}
		assert.ErrorIs(t, cashOnly("0.001"), ErrValidation)
		assert.ErrorIs(t, cashOnly("1e15"), ErrValidation)
		assert.ErrorIs(t, cashOnly("1000000000000"), ErrValidation)
		assert.NoError(t, cashOnly("999999999999.99"))
		assert.NoError(t, cashOnly("0.01"))
		assert.NoError(t, cashOnly("12.500"))
	})

	t.Run("empty offer", func(t *testing.T) {
		_, err := NewTrade(ProposeInput{
			BuyerID:         f.buyer,
			SellerID:        f.seller,
			TargetProductID: f.target,
		}, testNow)
		assert.ErrorIs(t, err, ErrInvalidOffer)
		assert.ErrorIs(t, err, ErrValidation)
	})

	tests := []struct {
		name string
		in   ProposeInput
	}{
		{"self trade", ProposeInput{BuyerID: f.buyer, SellerID: f.buyer, TargetProductID: f.target, OfferedCashAmount: decimal.NewFromInt(1)}},
		{"negative cash", ProposeInput{BuyerID: f.buyer, SellerID: f.seller, TargetProductID: f.target, OfferedCashAmount: decimal.NewFromInt(-5)}},
		{"target offered", ProposeInput{BuyerID: f.buyer, SellerID: f.seller, TargetProductID: f.target, Items: []Item{{ProductID: f.target, OfferedBy: PartyBuyer}}}},
		{"duplicate item", ProposeInput{BuyerID: f.buyer, SellerID: f.seller, TargetProductID: f.target, Items: []Item{{ProductID: f.offered, OfferedBy: PartyBuyer}, {ProductID: f.offered, OfferedBy: PartyBuyer}}}},
		{"seller item in proposal", ProposeInput{BuyerID: f.buyer, SellerID: f.seller, TargetProductID: f.target, Items: []Item{{ProductID: f.offered, OfferedBy: PartySeller}}, OfferedCashAmount: decimal.NewFromInt(1)}},
		{"delivery without address", ProposeInput{BuyerID: f.buyer, SellerID: f.seller, TargetProductID: f.target, OfferedCashAmount: decimal.NewFromInt(1), TradeOption: optionPtr(OptionDelivery)}},
		{"address without delivery", ProposeInput{BuyerID: f.buyer, SellerID: f.seller, TargetProductID: f.target, OfferedCashAmount: decimal.NewFromInt(1), DeliveryAddress: "somewhere"}},
		{"unknown option", ProposeInput{BuyerID: f.buyer, SellerID: f.seller, TargetProductID: f.target, OfferedCashAmount: decimal.NewFromInt(1), TradeOption: optionPtr("DRONE")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTrade(tt.in, testNow)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestTrade_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusPending, StatusCountered, true},
		{StatusCountered, StatusPending, true},
		{StatusCountered, StatusAccepted, false},
		{StatusAccepted, StatusActive, true},
		{StatusAccepted, StatusCompleted, false},
		{StatusActive, StatusCompleted, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusDeclined, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			tr := &Trade{Status: tt.from}
			assert.Equal(t, tt.allowed, tr.CanTransitionTo(tt.to))
		})
	}
}

func TestTrade_Progress(t *testing.T) {
	f := newFixture()

	t.Run("pending awaits seller", func(t *testing.T) {
		p := f.propose(t, optionPtr(OptionMeetup), "").Progress()
		assert.Equal(t, PartySeller, p.AwaitingParty)
		assert.False(t, p.OptionLocked)
		assert.False(t, p.Terminal)
	})

	t.Run("meetup confirmed needs both flags", func(t *testing.T) {
		tr := f.active(t, OptionMeetup)
		_, err := tr.ConfirmMeetup(f.buyer, "Starbucks, BGC", testNow)
		require.NoError(t, err)

		p := tr.Progress()
		assert.True(t, p.OptionLocked)
		assert.True(t, p.BuyerMeetupConfirmed)
		assert.False(t, p.MeetupConfirmed)
		assert.Equal(t, StatusActive, p.Status)

		_, err = tr.ConfirmMeetup(f.seller, "Starbucks, BGC", testNow)
		require.NoError(t, err)
		assert.True(t, tr.Progress().MeetupConfirmed)
		assert.Equal(t, StatusActive, tr.Status)
	})

	t.Run("waiting for counterparty", func(t *testing.T) {
		tr := f.active(t, OptionDelivery)
		_, err := tr.SubmitCompletion(f.seller, 4, "", testNow)
		require.NoError(t, err)

		p := tr.Progress()
		assert.True(t, p.SellerWaiting)
		assert.False(t, p.BuyerWaiting)
		assert.False(t, p.Settled)
		assert.False(t, p.MeetupRequired)
	})
}

func TestTrade_Clone(t *testing.T) {
	f := newFixture()
	tr := f.active(t, OptionMeetup)
	_, err := tr.SubmitCompletion(f.buyer, 5, "great", testNow)
	require.NoError(t, err)

	c := tr.Clone()
	*c.TradeOption = OptionDelivery
	*c.BuyerRating = 1
	c.Items[0].OfferedBy = PartySeller

	assert.Equal(t, OptionMeetup, *tr.TradeOption)
	assert.Equal(t, 5, *tr.BuyerRating)
	assert.Equal(t, PartyBuyer, tr.Items[0].OfferedBy)
}

func TestTrade_JSON(t *testing.T) {
	f := newFixture()
	tr := f.propose(t, optionPtr(OptionMeetup), "")
	tr.OfferedCashAmount = decimal.RequireFromString("99.95")

	b, err := json.Marshal(tr)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "99.95", out["offeredCashAmount"])
	assert.Equal(t, "MEETUP", out["tradeOption"])
	assert.Equal(t, "PENDING", out["status"])
	assert.NotContains(t, out, "id")
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{ErrTradeNotFound, "NOT_FOUND"},
		{forbiddenf("nope"), "FORBIDDEN"},
		{invalidStatef("nope"), "INVALID_STATE"},
		{ErrPendingChangeExists, "PENDING_CHANGE_EXISTS"},
		{ErrAlreadySubmitted, "ALREADY_SUBMITTED"},
		{validationf("nope"), "VALIDATION"},
		{ErrInvalidOffer, "INVALID_OFFER"},
		{ErrLocationMismatch, "LOCATION_MISMATCH"},
		{errors.New("boom"), "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, Code(tt.err))
		})
	}
	assert.True(t, errors.Is(ErrPendingChangeExists, ErrInvalidState))
	assert.True(t, errors.Is(ErrLocationMismatch, ErrValidation))
	assert.False(t, IsDomainError(errors.New("boom")))
}
