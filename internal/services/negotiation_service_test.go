package services

import (
	"testing"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegotiation_ProposalsAreAdvisory(t *testing.T) {
	f := newFixture(t)
	sr := f.openRequest(auditDraft("Annual audit"))
	f.submit(provider1, sr.ID, 70000)
	b2 := f.submit(provider2, sr.ID, 65000)

	thread, err := f.negotiations.Initiate(f.ctx, seeker, b2.ID, []models.NegotiationReason{models.ReasonPricing}, "")
	require.NoError(t, err)
	assert.Equal(t, models.ActiveThread, thread.Status)
	assert.Empty(t, thread.Inputs)
	assert.Equal(t, models.UnderNegotiationBid, f.storedBid(b2.ID).Status)

	f.clock.Advance(time.Minute)
	thread, err = f.negotiations.SubmitInput(f.ctx, seeker, thread.ID, models.NegotiationInputRequest{
		Reason:          models.ReasonPricing,
		ProposedChanges: models.ProposedChanges{ProfessionalFee: ptr(int64(60000))},
	})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	thread, err = f.negotiations.SubmitInput(f.ctx, provider2, thread.ID, models.NegotiationInputRequest{
		Reason:          models.ReasonPricing,
		Message:         "Can meet at 62k",
		ProposedChanges: models.ProposedChanges{ProfessionalFee: ptr(int64(62000))},
	})
	require.NoError(t, err)

	require.Len(t, thread.Inputs, 2)
	assert.Equal(t, seeker.ID, thread.Inputs[0].SenderID)
	assert.Equal(t, int64(60000), *thread.Inputs[0].ProposedChanges.ProfessionalFee)
	assert.Equal(t, provider2.ID, thread.Inputs[1].SenderID)
	assert.Equal(t, int64(62000), *thread.Inputs[1].ProposedChanges.ProfessionalFee)
	assert.Equal(t, 1, thread.Inputs[0].Seq)
	assert.Equal(t, 2, thread.Inputs[1].Seq)

	assert.Equal(t, int64(65000), f.storedBid(b2.ID).Financials.ProfessionalFee)
}

func TestNegotiation_TimestampsAreMonotonic(t *testing.T) {
	f := newFixture(t)
	sr := f.openRequest(auditDraft("Annual audit"))
	bid := f.submit(provider1, sr.ID, 70000)

	thread, err := f.negotiations.Initiate(f.ctx, provider1, bid.ID, []models.NegotiationReason{models.ReasonTimeline}, "Need two more weeks")
	require.NoError(t, err)
	require.Len(t, thread.Inputs, 1)

	// Часы уходят назад: время хода не должно стать меньше предыдущего.
	f.clock.Advance(-time.Hour)
	thread, err = f.negotiations.SubmitInput(f.ctx, seeker, thread.ID, models.NegotiationInputRequest{
		Reason:  models.ReasonTimeline,
		Message: "One week at most",
	})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	thread, err = f.negotiations.SubmitInput(f.ctx, provider1, thread.ID, models.NegotiationInputRequest{
		Reason:  models.ReasonTimeline,
		Message: "Agreed",
	})
	require.NoError(t, err)

	stored, err := f.negotiations.Get(f.ctx, seeker, thread.ID)
	require.NoError(t, err)
	require.Len(t, stored.Inputs, 3)
	for i := 1; i < len(stored.Inputs); i++ {
		assert.False(t, stored.Inputs[i].Timestamp.Before(stored.Inputs[i-1].Timestamp))
	}
	assert.True(t, stored.LastActivity.Equal(stored.Inputs[2].Timestamp))
}

func TestNegotiation_ReinitiateReusesThread(t *testing.T) {
	f := newFixture(t)
	sr := f.openRequest(auditDraft("Annual audit"))
	bid := f.submit(provider1, sr.ID, 70000)

	first, err := f.negotiations.Initiate(f.ctx, seeker, bid.ID, []models.NegotiationReason{models.ReasonPricing}, "")
	require.NoError(t, err)

	_, err = f.bids.Review(f.ctx, seeker, bid.ID)
	require.NoError(t, err)

	second, err := f.negotiations.Initiate(f.ctx, seeker, bid.ID,
		[]models.NegotiationReason{models.ReasonScope, models.ReasonPricing, models.ReasonScope}, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []models.NegotiationReason{models.ReasonPricing, models.ReasonScope}, second.Reasons)

	byBid, err := f.negotiations.GetByBid(f.ctx, provider1, bid.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, byBid.ID)
	assert.Equal(t, models.UnderNegotiationBid, f.storedBid(bid.ID).Status)
}

func TestNegotiation_Validation(t *testing.T) {
	f := newFixture(t)
	sr := f.openRequest(auditDraft("Annual audit"))
	bid := f.submit(provider1, sr.ID, 70000)

	_, err := f.negotiations.Initiate(f.ctx, seeker, bid.ID, nil, "")
	requireKind(t, err, models.KindValidation)
	_, err = f.negotiations.Initiate(f.ctx, seeker, bid.ID, []models.NegotiationReason{"DISCOUNT"}, "")
	requireKind(t, err, models.KindValidation)
	_, err = f.negotiations.Initiate(f.ctx, provider2, bid.ID, []models.NegotiationReason{models.ReasonPricing}, "")
	requireKind(t, err, models.KindUnauthorized)

	thread, err := f.negotiations.Initiate(f.ctx, seeker, bid.ID, []models.NegotiationReason{models.ReasonPricing}, "")
	require.NoError(t, err)

	_, err = f.negotiations.SubmitInput(f.ctx, seeker, thread.ID, models.NegotiationInputRequest{Reason: models.ReasonPricing})
	requireKind(t, err, models.KindValidation)
	_, err = f.negotiations.SubmitInput(f.ctx, provider2, thread.ID, models.NegotiationInputRequest{Reason: models.ReasonPricing, Message: "hi"})
	requireKind(t, err, models.KindUnauthorized)
	_, err = f.negotiations.Get(f.ctx, outsider, thread.ID)
	requireKind(t, err, models.KindUnauthorized)
}

func TestNegotiation_FinalAcceptanceCompletesThread(t *testing.T) {
	f := newFixture(t)
	sr := f.openRequest(auditDraft("Annual audit"))
	bid := f.submit(provider1, sr.ID, 70000)

	thread, err := f.negotiations.Initiate(f.ctx, seeker, bid.ID, []models.NegotiationReason{models.ReasonPricing}, "Lower the fee?")
	require.NoError(t, err)

	_, err = f.bids.Accept(f.ctx, seeker, bid.ID)
	require.NoError(t, err)

	_, err = f.negotiations.SubmitInput(f.ctx, provider1, thread.ID, models.NegotiationInputRequest{
		Reason:  models.ReasonPricing,
		Message: "more haggling",
	})
	requireKind(t, err, models.KindInvalidTransition)

	thread, err = f.negotiations.SubmitInput(f.ctx, provider1, thread.ID, models.NegotiationInputRequest{
		Reason:          models.ReasonPricing,
		FinalAcceptance: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CompletedThread, thread.Status)

	_, err = f.negotiations.SubmitInput(f.ctx, seeker, thread.ID, models.NegotiationInputRequest{
		Reason:  models.ReasonPricing,
		Message: "thanks",
	})
	requireKind(t, err, models.KindInvalidTransition)
}

func TestNegotiation_AcceptAfterFinalAcceptance(t *testing.T) {
	f := newFixture(t)
	sr := f.openRequest(auditDraft("Annual audit"))
	bid := f.submit(provider1, sr.ID, 70000)

	thread, err := f.negotiations.Initiate(f.ctx, seeker, bid.ID, []models.NegotiationReason{models.ReasonPricing}, "")
	require.NoError(t, err)
	_, err = f.negotiations.SubmitInput(f.ctx, provider1, thread.ID, models.NegotiationInputRequest{
		Reason:          models.ReasonPricing,
		FinalAcceptance: true,
	})
	require.NoError(t, err)

	_, err = f.bids.Accept(f.ctx, seeker, bid.ID)
	require.NoError(t, err)

	stored, err := f.negotiations.Get(f.ctx, provider1, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CompletedThread, stored.Status)
}
