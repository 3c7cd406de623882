package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ayudabesh-backend/internal/auth"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTrust(repo *memoryRepo, counts fakeBookings) (*TrustService, *recordingNotifier) {
	n := &recordingNotifier{}
	s := NewTrustService(repo, counts, n, discardLogger())
	s.now = func() time.Time { return fixedNow }
	return s, n
}

func TestVerifyAndRejectKeepFlagsExclusive(t *testing.T) {
	repo := newMemoryRepo(User{ID: "p1", Role: auth.RoleProvider, IsRejected: true, RejectionReason: "blurry id"})
	s, n := newTrust(repo, fakeBookings{})
	ctx := context.Background()

	require.NoError(t, s.Verify(ctx, "p1"))
	u := repo.get("p1")
	assert.True(t, u.IsVerified)
	assert.False(t, u.IsRejected)
	assert.Empty(t, u.RejectionReason)
	assert.Len(t, n.to("p1"), 1)

	assert.ErrorIs(t, s.Reject(ctx, "p1", "   "), ErrReasonRequired)
	require.NoError(t, s.Reject(ctx, "p1", "expired permit"))
	u = repo.get("p1")
	assert.False(t, u.IsVerified)
	assert.True(t, u.IsRejected)
	assert.Equal(t, "expired permit", u.RejectionReason)
}

func TestVerifyUnknownOrNonProvider(t *testing.T) {
	repo := newMemoryRepo(User{ID: "c1", Role: auth.RoleCustomer})
	s, _ := newTrust(repo, fakeBookings{})
	assert.ErrorIs(t, s.Verify(context.Background(), "missing"), ErrProviderNotFound)
	assert.ErrorIs(t, s.Verify(context.Background(), "c1"), ErrProviderNotFound)
}

func TestDisableDurations(t *testing.T) {
	repo := newMemoryRepo(User{ID: "u1", Role: auth.RoleCustomer})
	s, n := newTrust(repo, fakeBookings{})
	ctx := context.Background()

	_, err := s.Disable(ctx, "admin", "u1", -1, "")
	assert.ErrorIs(t, err, ErrInvalidDuration)

	until, err := s.Disable(ctx, "admin", "u1", 0, "")
	require.NoError(t, err)
	assert.Nil(t, until)
	u := repo.get("u1")
	assert.True(t, u.AccountDisabled)
	assert.Nil(t, u.DisabledUntil)
	assert.Equal(t, "Account disabled by admin", u.DisabledReason)
	assert.Equal(t, "admin", u.DisabledBy)

	until, err = s.Disable(ctx, "admin", "u1", 7, "spam")
	require.NoError(t, err)
	require.NotNil(t, until)
	assert.Equal(t, fixedNow.AddDate(0, 0, 7), *until)

	msgs := n.to("u1")
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Message, "permanently")
	assert.Contains(t, msgs[1].Message, "until 2025-06-08")

	require.NoError(t, s.Enable(ctx, "u1"))
	u = repo.get("u1")
	assert.False(t, u.AccountDisabled)
	assert.Nil(t, u.DisabledUntil)
	assert.Empty(t, u.DisabledReason)

	_, err = s.Disable(ctx, "admin", "ghost", 1, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequestDeletionBlockedByActiveBooking(t *testing.T) {
	repo := newMemoryRepo(User{ID: "c1", Role: auth.RoleCustomer})
	s, _ := newTrust(repo, fakeBookings{active: 1})

	err := s.RequestDeletion(context.Background(), auth.Principal{UserID: "c1", Role: auth.RoleCustomer}, "moving")
	assert.ErrorIs(t, err, ErrActiveBookings)

	u := repo.get("c1")
	assert.False(t, u.AccountDisabled)
	assert.False(t, u.DeletionRequested)
}

func TestRequestDeletionDisablesAndNotifiesAdmins(t *testing.T) {
	repo := newMemoryRepo(
		User{ID: "c1", Role: auth.RoleCustomer, FullName: "Ana Cruz"},
		User{ID: "a1", Role: auth.RoleAdmin},
		User{ID: "a2", Role: auth.RoleAdmin},
	)
	s, n := newTrust(repo, fakeBookings{all: 3})

	require.NoError(t, s.RequestDeletion(context.Background(), auth.Principal{UserID: "c1", Role: auth.RoleCustomer}, ""))

	u := repo.get("c1")
	assert.True(t, u.AccountDisabled)
	assert.True(t, u.DeletionRequested)
	assert.Equal(t, "No reason provided", u.DeletionReason)
	assert.Len(t, n.to("a1"), 1)
	assert.Len(t, n.to("a2"), 1)
	assert.Contains(t, n.to("a1")[0].Message, "Ana Cruz")

	reqs, err := s.DeletionRequests(context.Background())
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
}

func TestApproveDeletionRules(t *testing.T) {
	repo := newMemoryRepo(User{ID: "c1", Role: auth.RoleCustomer, DeletionRequested: true, AccountDisabled: true})

	blocked, _ := newTrust(repo, fakeBookings{all: 2})
	err := blocked.ApproveDeletion(context.Background(), "c1")
	assert.ErrorIs(t, err, ErrHasBookings)
	assert.Contains(t, err.Error(), "2 booking(s)")

	s, _ := newTrust(repo, fakeBookings{})
	require.NoError(t, s.ApproveDeletion(context.Background(), "c1"))
	assert.Empty(t, repo.get("c1").ID)
	assert.ErrorIs(t, s.ApproveDeletion(context.Background(), "c1"), ErrNotFound)
}

func TestRejectDeletionReEnables(t *testing.T) {
	repo := newMemoryRepo(User{ID: "c1", Role: auth.RoleCustomer, DeletionRequested: true, AccountDisabled: true})
	s, n := newTrust(repo, fakeBookings{})

	require.NoError(t, s.RejectDeletion(context.Background(), "c1", ""))
	u := repo.get("c1")
	assert.False(t, u.AccountDisabled)
	assert.False(t, u.DeletionRequested)
	assert.True(t, u.DeletionRejected)
	assert.Equal(t, "Deletion request rejected by admin", u.DeletionRejectionReason)
	assert.Len(t, n.to("c1"), 1)
}

func TestDeleteProviderBlocksOnAnyBooking(t *testing.T) {
	repo := newMemoryRepo(User{ID: "p1", Role: auth.RoleProvider}, User{ID: "c1", Role: auth.RoleCustomer})

	blocked, _ := newTrust(repo, fakeBookings{asProvider: 1})
	assert.ErrorIs(t, blocked.DeleteProvider(context.Background(), "p1"), ErrHasBookings)

	s, _ := newTrust(repo, fakeBookings{})
	assert.ErrorIs(t, s.DeleteProvider(context.Background(), "c1"), ErrProviderNotFound)
	require.NoError(t, s.DeleteProvider(context.Background(), "p1"))
}

func TestVerifiedProvidersCarryJobCounts(t *testing.T) {
	repo := newMemoryRepo(
		User{ID: "p1", Role: auth.RoleProvider, IsVerified: true},
		User{ID: "p2", Role: auth.RoleProvider},
	)
	s, _ := newTrust(repo, fakeBookings{completed: 4})

	verified, err := s.VerifiedProviders(context.Background())
	require.NoError(t, err)
	require.Len(t, verified, 1)
	assert.Equal(t, int64(4), verified[0].CompletedJobs)

	pending, err := s.PendingProviders(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "p2", pending[0].ID)
}

func TestSweepExpiredDisables(t *testing.T) {
	past := fixedNow.Add(-time.Hour)
	future := fixedNow.Add(time.Hour)
	repo := newMemoryRepo(
		User{ID: "u1", AccountDisabled: true, DisabledUntil: &past},
		User{ID: "u2", AccountDisabled: true, DisabledUntil: &future},
		User{ID: "u3", AccountDisabled: true},
	)
	s, _ := newTrust(repo, fakeBookings{})

	n, err := s.SweepExpiredDisables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.False(t, repo.get("u1").AccountDisabled)
	assert.True(t, repo.get("u2").AccountDisabled)
	assert.True(t, repo.get("u3").AccountDisabled)
}
