package registration

import (
	"context"
	"errors"
	"testing"
	"time"

	"wildenergy/internal/apperr"
	"wildenergy/internal/catalog"
	"wildenergy/internal/course"
	"wildenergy/internal/member"
	"wildenergy/internal/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRegistrationRepo struct{ mock.Mock }
type MockLedger struct{ mock.Mock }
type MockCourseRepo struct{ mock.Mock }
type MockSubscriptionRepo struct{ mock.Mock }
type MockCatalogRepo struct{ mock.Mock }
type MockMemberRepo struct{ mock.Mock }
type MockNotifier struct{ mock.Mock }

func (m *MockRegistrationRepo) GetByID(ctx context.Context, id int) (*Registration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Registration), args.Error(1)
}

func (m *MockRegistrationRepo) ListByMember(ctx context.Context, memberID int) ([]RegistrationWithCourse, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]RegistrationWithCourse), args.Error(1)
}

func (m *MockRegistrationRepo) ListActiveOnDate(ctx context.Context, memberID int, date time.Time) ([]Overlap, error) {
	args := m.Called(ctx, memberID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Overlap), args.Error(1)
}

func (m *MockRegistrationRepo) MarkAbsent(ctx context.Context, registrationID int) error {
	return m.Called(ctx, registrationID).Error(0)
}

func (m *MockLedger) Reserve(ctx context.Context, p ReserveParams) (*Registration, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Registration), args.Error(1)
}

func (m *MockLedger) Release(ctx context.Context, p ReleaseParams) (*ReleaseResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ReleaseResult), args.Error(1)
}

func (m *MockCourseRepo) GetByID(ctx context.Context, id int) (*course.Instance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*course.Instance), args.Error(1)
}

func (m *MockCourseRepo) GetWithClassByID(ctx context.Context, id int) (*course.InstanceWithClass, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*course.InstanceWithClass), args.Error(1)
}

func (m *MockCourseRepo) ListUpcoming(ctx context.Context, from time.Time) ([]course.InstanceWithClass, error) {
	args := m.Called(ctx, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]course.InstanceWithClass), args.Error(1)
}

func (m *MockCourseRepo) ListBySchedule(ctx context.Context, scheduleID int) ([]course.Instance, error) {
	args := m.Called(ctx, scheduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]course.Instance), args.Error(1)
}

func (m *MockCourseRepo) ReplaceForSchedule(ctx context.Context, scheduleID int, instances []course.Instance) ([]course.Instance, error) {
	args := m.Called(ctx, scheduleID, instances)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]course.Instance), args.Error(1)
}

func (m *MockCourseRepo) SetActiveForSchedule(ctx context.Context, scheduleID int, active bool) (int, error) {
	args := m.Called(ctx, scheduleID, active)
	return args.Int(0), args.Error(1)
}

func (m *MockCourseRepo) CancelInstance(ctx context.Context, id int) (*course.InstanceWithClass, []course.Attendee, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*course.InstanceWithClass), args.Get(1).([]course.Attendee), args.Error(2)
}

func (m *MockCourseRepo) DeleteInstance(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCourseRepo) SweepStatuses(ctx context.Context, now time.Time) (int64, int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockSubscriptionRepo) ListActiveByMember(ctx context.Context, memberID int) ([]subscription.SubscriptionWithAllocations, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]subscription.SubscriptionWithAllocations), args.Error(1)
}

func (m *MockSubscriptionRepo) CreateFromPlan(ctx context.Context, memberID, planID int) (*subscription.SubscriptionWithAllocations, error) {
	args := m.Called(ctx, memberID, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.SubscriptionWithAllocations), args.Error(1)
}

func (m *MockCatalogRepo) CreateClass(ctx context.Context, req catalog.CreateClassRequest) (*catalog.Class, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Class), args.Error(1)
}

func (m *MockCatalogRepo) GetClassByID(ctx context.Context, id int) (*catalog.Class, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Class), args.Error(1)
}

func (m *MockCatalogRepo) ListClasses(ctx context.Context, onlyActive bool) ([]catalog.Class, error) {
	args := m.Called(ctx, onlyActive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Class), args.Error(1)
}

func (m *MockCatalogRepo) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCatalogRepo) ListGroups(ctx context.Context) ([]catalog.Group, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Group), args.Error(1)
}

func (m *MockCatalogRepo) GroupIndex(ctx context.Context) (catalog.GroupIndex, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(catalog.GroupIndex), args.Error(1)
}

func (m *MockMemberRepo) Create(ctx context.Context, name, email, passwordHash, role string) (*member.Member, error) {
	args := m.Called(ctx, name, email, passwordHash, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.Member), args.Error(1)
}

func (m *MockMemberRepo) FindByEmail(ctx context.Context, email string) (*member.Member, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.Member), args.Error(1)
}

func (m *MockMemberRepo) FindByID(ctx context.Context, id int) (*member.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.Member), args.Error(1)
}

func (m *MockMemberRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotifier) SendRegistrationConfirmation(ctx context.Context, email, name, className, qrToken string, startAt time.Time) error {
	return m.Called(ctx, email, name, className, qrToken, startAt).Error(0)
}

func (m *MockNotifier) SendCancellationNotice(ctx context.Context, email, name, className string, startAt time.Time, refunded bool) error {
	return m.Called(ctx, email, name, className, startAt, refunded).Error(0)
}

type serviceFixture struct {
	svc      *Service
	repo     *MockRegistrationRepo
	ledger   *MockLedger
	crs      *MockCourseRepo
	subs     *MockSubscriptionRepo
	cat      *MockCatalogRepo
	members  *MockMemberRepo
	notifier *MockNotifier
}

func newFixture() *serviceFixture {
	f := &serviceFixture{
		repo:    new(MockRegistrationRepo),
		ledger:  new(MockLedger),
		crs:     new(MockCourseRepo),
		subs:    new(MockSubscriptionRepo),
		cat:     new(MockCatalogRepo),
		members: new(MockMemberRepo),
	}
	f.svc = NewService(f.repo, f.ledger, f.crs, f.subs, f.cat, f.members, nil, 24*time.Hour)
	return f
}

// newNotifyingFixture wires a notifier in, for tests covering the
// lifecycle emails.
func newNotifyingFixture() *serviceFixture {
	f := newFixture()
	f.notifier = new(MockNotifier)
	f.svc = NewService(f.repo, f.ledger, f.crs, f.subs, f.cat, f.members, f.notifier, 24*time.Hour)
	return f
}

func poleCourse(startIn time.Duration) *course.InstanceWithClass {
	start := time.Now().Add(startIn)
	return &course.InstanceWithClass{
		Instance: course.Instance{
			ID:              5,
			ClassID:         1,
			TrainerID:       2,
			CourseDate:      start.Truncate(24 * time.Hour),
			StartAt:         start,
			EndAt:           start.Add(time.Hour),
			MaxParticipants: 10,
			Status:          course.StatusScheduled,
			IsActive:        true,
		},
		ClassName:  "Pole Basics",
		CategoryID: 1,
	}
}

func fundedSub(allocationID, groupID, remaining int) []subscription.SubscriptionWithAllocations {
	return []subscription.SubscriptionWithAllocations{{
		Subscription: subscription.Subscription{ID: 100, MemberID: 42, Status: subscription.StatusActive},
		Allocations: []subscription.GroupSessionAllocation{{
			ID:                allocationID,
			SubscriptionID:    100,
			GroupID:           groupID,
			SessionsRemaining: remaining,
			TotalSessions:     10,
		}},
	}}
}

func poleIndex() catalog.GroupIndex {
	ix := make(catalog.GroupIndex)
	ix[1] = map[int]struct{}{10: {}} // category 1 covered by group 10
	return ix
}

func TestRegisterFundedByAllocation(t *testing.T) {
	f := newFixture()
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(poleCourse(48*time.Hour), nil)
	f.subs.On("ListActiveByMember", mock.Anything, 42).Return(fundedSub(9, 10, 3), nil)
	f.cat.On("GroupIndex", mock.Anything).Return(poleIndex(), nil)
	f.repo.On("ListActiveOnDate", mock.Anything, 42, mock.Anything).Return([]Overlap{}, nil)

	var captured ReserveParams
	f.ledger.On("Reserve", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(ReserveParams) }).
		Return(&Registration{ID: 1, MemberID: 42, CourseID: 5, Status: StatusRegistered}, nil)

	resp, err := f.svc.Register(context.Background(), 42, 5, RegisterRequest{})
	require.NoError(t, err)
	require.NotNil(t, resp.Registration)
	assert.Equal(t, FundingAllocation, resp.Funding)
	require.NotNil(t, captured.AllocationID)
	assert.Equal(t, 9, *captured.AllocationID)
	assert.False(t, captured.Guest)
	assert.NotEmpty(t, captured.QRToken)
}

func TestRegisterNoActiveSubscription(t *testing.T) {
	f := newFixture()
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(poleCourse(48*time.Hour), nil)
	f.subs.On("ListActiveByMember", mock.Anything, 42).Return([]subscription.SubscriptionWithAllocations{}, nil)

	_, err := f.svc.Register(context.Background(), 42, 5, RegisterRequest{})
	require.Error(t, err)
	assert.Equal(t, "no_active_subscription", apperr.As(err).Code)
	f.ledger.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything)
}

func TestRegisterNoSessionsRemaining(t *testing.T) {
	f := newFixture()
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(poleCourse(48*time.Hour), nil)
	f.subs.On("ListActiveByMember", mock.Anything, 42).Return(fundedSub(9, 10, 0), nil)
	f.cat.On("GroupIndex", mock.Anything).Return(poleIndex(), nil)

	_, err := f.svc.Register(context.Background(), 42, 5, RegisterRequest{})
	require.Error(t, err)
	assert.Equal(t, "no_sessions_remaining", apperr.As(err).Code)
}

func TestRegisterWrongGroupNoFunding(t *testing.T) {
	f := newFixture()
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(poleCourse(48*time.Hour), nil)
	// Sessions remain but the allocation's group does not cover the
	// course's category.
	f.subs.On("ListActiveByMember", mock.Anything, 42).Return(fundedSub(9, 99, 5), nil)
	f.cat.On("GroupIndex", mock.Anything).Return(poleIndex(), nil)

	_, err := f.svc.Register(context.Background(), 42, 5, RegisterRequest{})
	require.Error(t, err)
	assert.Equal(t, "no_sessions_remaining", apperr.As(err).Code)
}

func TestRegisterGuestFallback(t *testing.T) {
	f := newFixture()
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(poleCourse(48*time.Hour), nil)
	f.subs.On("ListActiveByMember", mock.Anything, 42).Return([]subscription.SubscriptionWithAllocations{}, nil)
	f.repo.On("ListActiveOnDate", mock.Anything, 42, mock.Anything).Return([]Overlap{}, nil)

	var captured ReserveParams
	f.ledger.On("Reserve", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(ReserveParams) }).
		Return(&Registration{ID: 1, Status: StatusRegistered}, nil)

	resp, err := f.svc.Register(context.Background(), 42, 5, RegisterRequest{AllowGuest: true})
	require.NoError(t, err)
	assert.Equal(t, FundingGuest, resp.Funding)
	assert.True(t, captured.Guest)
	assert.Nil(t, captured.AllocationID)
}

func TestRegisterPastCourseRejected(t *testing.T) {
	f := newFixture()
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(poleCourse(-time.Hour), nil)

	_, err := f.svc.Register(context.Background(), 42, 5, RegisterRequest{})
	require.Error(t, err)
	assert.True(t, apperr.IsState(err))
	assert.Equal(t, "course_already_started", apperr.As(err).Code)
}

func TestRegisterReportsConflictsWithoutForce(t *testing.T) {
	f := newFixture()
	inst := poleCourse(48 * time.Hour)
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(inst, nil)
	f.subs.On("ListActiveByMember", mock.Anything, 42).Return(fundedSub(9, 10, 3), nil)
	f.cat.On("GroupIndex", mock.Anything).Return(poleIndex(), nil)

	clash := Overlap{
		RegistrationID: 77,
		CourseID:       6,
		ClassName:      "Stretching",
		StartAt:        inst.StartAt.Add(-30 * time.Minute),
		EndAt:          inst.StartAt.Add(30 * time.Minute),
	}
	f.repo.On("ListActiveOnDate", mock.Anything, 42, mock.Anything).Return([]Overlap{clash}, nil)

	resp, err := f.svc.Register(context.Background(), 42, 5, RegisterRequest{})
	require.NoError(t, err)
	assert.Nil(t, resp.Registration)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, 77, resp.Conflicts[0].RegistrationID)
	f.ledger.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything)
}

func TestRegisterForceSkipsOverlapCheck(t *testing.T) {
	f := newFixture()
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(poleCourse(48*time.Hour), nil)
	f.subs.On("ListActiveByMember", mock.Anything, 42).Return(fundedSub(9, 10, 3), nil)
	f.cat.On("GroupIndex", mock.Anything).Return(poleIndex(), nil)
	f.ledger.On("Reserve", mock.Anything, mock.Anything).
		Return(&Registration{ID: 1, Status: StatusRegistered}, nil)

	resp, err := f.svc.Register(context.Background(), 42, 5, RegisterRequest{Force: true})
	require.NoError(t, err)
	require.NotNil(t, resp.Registration)
	f.repo.AssertNotCalled(t, "ListActiveOnDate", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterRetriesOnceAfterLostRace(t *testing.T) {
	f := newFixture()
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(poleCourse(48*time.Hour), nil)
	f.subs.On("ListActiveByMember", mock.Anything, 42).Return(fundedSub(9, 10, 3), nil)
	f.cat.On("GroupIndex", mock.Anything).Return(poleIndex(), nil)
	f.repo.On("ListActiveOnDate", mock.Anything, 42, mock.Anything).Return([]Overlap{}, nil)

	lost := apperr.Concurrency("serialization_failure", "lost a concurrent update race")
	f.ledger.On("Reserve", mock.Anything, mock.Anything).Return(nil, lost).Once()
	f.ledger.On("Reserve", mock.Anything, mock.Anything).
		Return(&Registration{ID: 1, Status: StatusRegistered}, nil).Once()

	resp, err := f.svc.Register(context.Background(), 42, 5, RegisterRequest{})
	require.NoError(t, err)
	require.NotNil(t, resp.Registration)
	f.ledger.AssertNumberOfCalls(t, "Reserve", 2)
}

func TestRegisterGivesUpAfterSecondLostRace(t *testing.T) {
	f := newFixture()
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(poleCourse(48*time.Hour), nil)
	f.subs.On("ListActiveByMember", mock.Anything, 42).Return(fundedSub(9, 10, 3), nil)
	f.cat.On("GroupIndex", mock.Anything).Return(poleIndex(), nil)
	f.repo.On("ListActiveOnDate", mock.Anything, 42, mock.Anything).Return([]Overlap{}, nil)

	lost := apperr.Concurrency("serialization_failure", "lost a concurrent update race")
	f.ledger.On("Reserve", mock.Anything, mock.Anything).Return(nil, lost)

	_, err := f.svc.Register(context.Background(), 42, 5, RegisterRequest{})
	require.Error(t, err)
	assert.True(t, apperr.IsConcurrency(err))
	f.ledger.AssertNumberOfCalls(t, "Reserve", 2)
}

func TestCancelOwnBeforeStart(t *testing.T) {
	f := newFixture()
	reg := &Registration{ID: 1, MemberID: 42, CourseID: 5, Status: StatusRegistered}
	f.repo.On("GetByID", mock.Anything, 1).Return(reg, nil)
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(poleCourse(48*time.Hour), nil)

	var captured ReleaseParams
	f.ledger.On("Release", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(ReleaseParams) }).
		Return(&ReleaseResult{Registration: reg, Refunded: true}, nil)

	res, err := f.svc.Cancel(context.Background(), 42, 1, CancelRequest{}, false)
	require.NoError(t, err)
	assert.True(t, res.Refunded)
	assert.False(t, captured.ForceRefund)
	assert.Equal(t, 24*time.Hour, captured.RefundCutoff)
}

func TestCancelSomeoneElsesRegistrationHidden(t *testing.T) {
	f := newFixture()
	reg := &Registration{ID: 1, MemberID: 42, CourseID: 5, Status: StatusRegistered}
	f.repo.On("GetByID", mock.Anything, 1).Return(reg, nil)

	_, err := f.svc.Cancel(context.Background(), 43, 1, CancelRequest{}, false)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	f.ledger.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
}

func TestCancelAfterStartMemberBlockedAdminAllowed(t *testing.T) {
	f := newFixture()
	reg := &Registration{ID: 1, MemberID: 42, CourseID: 5, Status: StatusRegistered}
	f.repo.On("GetByID", mock.Anything, 1).Return(reg, nil)
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(poleCourse(-time.Hour), nil)

	_, err := f.svc.Cancel(context.Background(), 42, 1, CancelRequest{}, false)
	require.Error(t, err)
	assert.True(t, apperr.IsState(err))

	f.ledger.On("Release", mock.Anything, mock.Anything).
		Return(&ReleaseResult{Registration: reg, Refunded: true}, nil)

	res, err := f.svc.Cancel(context.Background(), 42, 1, CancelRequest{ForceRefund: true}, true)
	require.NoError(t, err)
	assert.True(t, res.Refunded)
}

func TestCancelForceRefundIgnoredForMembers(t *testing.T) {
	f := newFixture()
	reg := &Registration{ID: 1, MemberID: 42, CourseID: 5, Status: StatusRegistered}
	f.repo.On("GetByID", mock.Anything, 1).Return(reg, nil)
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(poleCourse(48*time.Hour), nil)

	var captured ReleaseParams
	f.ledger.On("Release", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(ReleaseParams) }).
		Return(&ReleaseResult{Registration: reg}, nil)

	_, err := f.svc.Cancel(context.Background(), 42, 1, CancelRequest{ForceRefund: true}, false)
	require.NoError(t, err)
	assert.False(t, captured.ForceRefund)
}

func TestBulkRegisterAggregatesPerMember(t *testing.T) {
	f := newFixture()
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(poleCourse(48*time.Hour), nil)
	f.cat.On("GroupIndex", mock.Anything).Return(poleIndex(), nil)

	// Member 42 has funding, member 43 falls back to guest, member 44
	// is already registered.
	f.subs.On("ListActiveByMember", mock.Anything, 42).Return(fundedSub(9, 10, 3), nil)
	f.subs.On("ListActiveByMember", mock.Anything, 43).Return([]subscription.SubscriptionWithAllocations{}, nil)
	f.subs.On("ListActiveByMember", mock.Anything, 44).Return(fundedSub(11, 10, 3), nil)

	match := func(memberID int) interface{} {
		return mock.MatchedBy(func(p ReserveParams) bool { return p.MemberID == memberID })
	}
	f.ledger.On("Reserve", mock.Anything, match(42)).
		Return(&Registration{ID: 1, MemberID: 42, Status: StatusRegistered}, nil)
	f.ledger.On("Reserve", mock.Anything, match(43)).
		Return(&Registration{ID: 2, MemberID: 43, Status: StatusRegistered}, nil)
	f.ledger.On("Reserve", mock.Anything, match(44)).
		Return(nil, apperr.Conflict("already_registered", "member already has an active registration for this course"))

	result, err := f.svc.BulkRegister(context.Background(), 5, BulkRegisterRequest{MemberIDs: []int{42, 43, 44}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Items, 3)
	assert.Empty(t, result.Items[0].Error)
	assert.NotNil(t, result.Items[1].Registration)
	assert.Contains(t, result.Items[2].Error, "already_registered")
}

func TestBulkRegisterSetsOverrideAndNotes(t *testing.T) {
	f := newFixture()
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(poleCourse(48*time.Hour), nil)
	f.subs.On("ListActiveByMember", mock.Anything, 42).Return(fundedSub(9, 10, 3), nil)
	f.cat.On("GroupIndex", mock.Anything).Return(poleIndex(), nil)

	var captured ReserveParams
	f.ledger.On("Reserve", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(ReserveParams) }).
		Return(&Registration{ID: 1, Status: StatusRegistered}, nil)

	_, err := f.svc.BulkRegister(context.Background(), 5, BulkRegisterRequest{MemberIDs: []int{42}})
	require.NoError(t, err)
	assert.True(t, captured.AdminOverride)
	assert.Equal(t, "admin bulk registration", captured.Notes)
}

func TestRegisterQueuesConfirmationEmail(t *testing.T) {
	f := newNotifyingFixture()
	inst := poleCourse(48 * time.Hour)
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(inst, nil)
	f.subs.On("ListActiveByMember", mock.Anything, 42).Return(fundedSub(9, 10, 3), nil)
	f.cat.On("GroupIndex", mock.Anything).Return(poleIndex(), nil)
	f.repo.On("ListActiveOnDate", mock.Anything, 42, mock.Anything).Return([]Overlap{}, nil)

	reg := &Registration{ID: 1, MemberID: 42, CourseID: 5, Status: StatusRegistered, QRToken: "tok-123"}
	f.ledger.On("Reserve", mock.Anything, mock.Anything).Return(reg, nil)

	f.members.On("FindByID", mock.Anything, 42).
		Return(&member.Member{ID: 42, Name: "Aya", Email: "aya@example.com"}, nil)
	f.notifier.On("SendRegistrationConfirmation",
		mock.Anything, "aya@example.com", "Aya", "Pole Basics", "tok-123", inst.StartAt).
		Return(nil)

	resp, err := f.svc.Register(context.Background(), 42, 5, RegisterRequest{})
	require.NoError(t, err)
	require.NotNil(t, resp.Registration)
	f.notifier.AssertExpectations(t)
}

func TestRegisterSucceedsWhenNotifierLookupFails(t *testing.T) {
	f := newNotifyingFixture()
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(poleCourse(48*time.Hour), nil)
	f.subs.On("ListActiveByMember", mock.Anything, 42).Return(fundedSub(9, 10, 3), nil)
	f.cat.On("GroupIndex", mock.Anything).Return(poleIndex(), nil)
	f.repo.On("ListActiveOnDate", mock.Anything, 42, mock.Anything).Return([]Overlap{}, nil)
	f.ledger.On("Reserve", mock.Anything, mock.Anything).
		Return(&Registration{ID: 1, MemberID: 42, Status: StatusRegistered}, nil)

	f.members.On("FindByID", mock.Anything, 42).Return(nil, errors.New("sql: no rows"))

	resp, err := f.svc.Register(context.Background(), 42, 5, RegisterRequest{})
	require.NoError(t, err)
	require.NotNil(t, resp.Registration)
	f.notifier.AssertNotCalled(t, "SendRegistrationConfirmation",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelQueuesNoticeWithRefundOutcome(t *testing.T) {
	f := newNotifyingFixture()
	reg := &Registration{ID: 1, MemberID: 42, CourseID: 5, Status: StatusRegistered}
	f.repo.On("GetByID", mock.Anything, 1).Return(reg, nil)
	inst := poleCourse(48 * time.Hour)
	f.crs.On("GetWithClassByID", mock.Anything, 5).Return(inst, nil)
	f.ledger.On("Release", mock.Anything, mock.Anything).
		Return(&ReleaseResult{Registration: reg, Refunded: true}, nil)

	f.members.On("FindByID", mock.Anything, 42).
		Return(&member.Member{ID: 42, Name: "Aya", Email: "aya@example.com"}, nil)
	f.notifier.On("SendCancellationNotice",
		mock.Anything, "aya@example.com", "Aya", "Pole Basics", inst.StartAt, true).
		Return(nil)

	_, err := f.svc.Cancel(context.Background(), 42, 1, CancelRequest{}, false)
	require.NoError(t, err)
	f.notifier.AssertExpectations(t)
}
