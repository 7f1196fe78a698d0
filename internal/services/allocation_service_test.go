package services

import (
	"testing"
	"time"

	"github.com/senyabanana/procurement-service/internal/events"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocate_HistoryKeepsPreviousAssignee(t *testing.T) {
	f := newFixture(t)
	sr := f.openRequest(auditDraft("Annual audit"))

	first, err := f.allocations.Allocate(f.ctx, seeker, models.AllocationRequest{ServiceRequestID: sr.ID, TeamMemberID: "member-1"})
	require.NoError(t, err)
	assert.Empty(t, first.PreviousAssignee)
	assert.Equal(t, seeker.ID, first.AllocatedBy)

	f.clock.Advance(time.Minute)
	second, err := f.allocations.Allocate(f.ctx, colleague, models.AllocationRequest{
		ServiceRequestID: sr.ID, TeamMemberID: "member-2", Reason: "holiday cover",
	})
	require.NoError(t, err)
	assert.Equal(t, "member-1", second.PreviousAssignee)
	assert.Equal(t, "holiday cover", second.Reason)

	assert.Equal(t, "member-2", f.storedRequest(sr.ID).CurrentAssignee)

	history, err := f.allocations.History(f.ctx, seeker, sr.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ID, history[1].ID)
	assert.Contains(t, f.pub.types(), events.RequestAllocated)
}

func TestAllocate_Rules(t *testing.T) {
	f := newFixture(t)
	sr := f.openRequest(auditDraft("Annual audit"))

	_, err := f.allocations.Allocate(f.ctx, seeker, models.AllocationRequest{ServiceRequestID: sr.ID})
	requireKind(t, err, models.KindValidation)
	_, err = f.allocations.Allocate(f.ctx, outsider, models.AllocationRequest{ServiceRequestID: sr.ID, TeamMemberID: "member-1"})
	requireKind(t, err, models.KindUnauthorized)
	_, err = f.allocations.Allocate(f.ctx, provider1, models.AllocationRequest{ServiceRequestID: sr.ID, TeamMemberID: "member-1"})
	requireKind(t, err, models.KindUnauthorized)
	_, err = f.allocations.Allocate(f.ctx, seeker, models.AllocationRequest{ServiceRequestID: "missing", TeamMemberID: "member-1"})
	requireKind(t, err, models.KindNotFound)

	_, err = f.allocations.Allocate(f.ctx, seeker, models.AllocationRequest{ServiceRequestID: sr.ID, TeamMemberID: "member-1"})
	require.NoError(t, err)
	_, err = f.allocations.Allocate(f.ctx, seeker, models.AllocationRequest{ServiceRequestID: sr.ID, TeamMemberID: "member-1"})
	requireKind(t, err, models.KindValidation)

	history, err := f.allocations.History(f.ctx, seeker, sr.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = f.allocations.History(f.ctx, outsider, sr.ID)
	requireKind(t, err, models.KindUnauthorized)
}

func TestAllocationHistory_EmptyIsNotNil(t *testing.T) {
	f := newFixture(t)
	sr := f.openRequest(auditDraft("Annual audit"))

	history, err := f.allocations.History(f.ctx, seeker, sr.ID)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestBulkAllocate_PartialFailure(t *testing.T) {
	f := newFixture(t)
	a := f.openRequest(auditDraft("Annual audit"))
	b := f.openRequest(auditDraft("Tax review"))

	_, err := f.allocations.Allocate(f.ctx, seeker, models.AllocationRequest{ServiceRequestID: b.ID, TeamMemberID: "member-1"})
	require.NoError(t, err)

	records, err := f.allocations.BulkAllocate(f.ctx, seeker, []models.AllocationRequest{
		{ServiceRequestID: a.ID, TeamMemberID: "member-1"},
		{ServiceRequestID: b.ID, TeamMemberID: "member-1"},
	})
	require.Error(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, a.ID, records[0].ServiceRequestID)

	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok)
	require.Len(t, joined.Unwrap(), 1)
	requireKind(t, joined.Unwrap()[0], models.KindValidation)

	assert.Equal(t, "member-1", f.storedRequest(a.ID).CurrentAssignee)
}

func TestBulkAllocate_RejectsInvalidBatchUpFront(t *testing.T) {
	f := newFixture(t)
	a := f.openRequest(auditDraft("Annual audit"))

	_, err := f.allocations.BulkAllocate(f.ctx, seeker, nil)
	requireKind(t, err, models.KindValidation)

	_, err = f.allocations.BulkAllocate(f.ctx, seeker, []models.AllocationRequest{
		{ServiceRequestID: a.ID, TeamMemberID: "member-1"},
		{ServiceRequestID: a.ID, TeamMemberID: "member-2"},
	})
	er := requireKind(t, err, models.KindValidation)
	assert.Contains(t, er.Message, "listed twice")

	_, err = f.allocations.BulkAllocate(f.ctx, seeker, []models.AllocationRequest{
		{ServiceRequestID: a.ID, TeamMemberID: "member-1"},
		{ServiceRequestID: "", TeamMemberID: "member-2"},
	})
	requireKind(t, err, models.KindValidation)

	assert.Empty(t, f.storedRequest(a.ID).CurrentAssignee)

	_, err = f.allocations.BulkAllocate(f.ctx, provider1, []models.AllocationRequest{{ServiceRequestID: a.ID, TeamMemberID: "member-1"}})
	requireKind(t, err, models.KindUnauthorized)
}
