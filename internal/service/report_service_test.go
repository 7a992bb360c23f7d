package service

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/woreda-portal/compliance-service/internal/config"
	"github.com/woreda-portal/compliance-service/internal/domain"
	"github.com/woreda-portal/compliance-service/internal/events"
	"github.com/woreda-portal/compliance-service/internal/persistence"
	"github.com/woreda-portal/compliance-service/internal/repository/repotest"
	apperrors "github.com/woreda-portal/compliance-service/pkg/util/errorutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixtureStart = time.Date(2025, 11, 1, 8, 0, 0, 0, time.UTC)

type mockStatsCache struct {
	mock.Mock
}

func (m *mockStatsCache) Get(ctx context.Context) (*domain.ReportStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*domain.ReportStats)
	return stats, args.Error(1)
}

func (m *mockStatsCache) Set(ctx context.Context, stats *domain.ReportStats) error {
	return m.Called(ctx, stats).Error(0)
}

func (m *mockStatsCache) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type reportFixture struct {
	svc        *ReportService
	store      *repotest.Store
	dispatcher events.Dispatcher
	admin      *domain.User
	staff      *domain.User
	moderator  *domain.User
	published  []events.Event
}

func newReportFixture(t *testing.T, opts ...func(*ReportDependencies)) *reportFixture {
	t.Helper()
	store := repotest.NewStore(fixtureStart)
	f := &reportFixture{store: store, dispatcher: events.NewInMemoryDispatcher()}
	for _, eventType := range events.AllEventTypes {
		f.dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.published = append(f.published, e)
			return nil
		})
	}

	f.admin = seedUser(t, store, "admin@example.gov", domain.UserRoleAdmin, domain.UserStatusActive)
	f.staff = seedUser(t, store, "staff@example.gov", domain.UserRoleStaff, domain.UserStatusActive)
	f.moderator = seedUser(t, store, "mod@example.gov", domain.UserRoleModerator, domain.UserStatusActive)

	deps := ReportDependencies{
		ReportRepo:  store.Reports(),
		NoteRepo:    store.Notes(),
		HistoryRepo: store.History(),
		UserRepo:    store.Users(),
		Dispatcher:  f.dispatcher,
		Config:      config.DefaultReportsConfig(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.svc = NewReportService(deps)
	return f
}

func seedUser(t *testing.T, store *repotest.Store, email string, role domain.UserRole, status domain.UserStatus) *domain.User {
	t.Helper()
	user := &domain.User{Email: email, Name: strings.Split(email, "@")[0], Role: role, Status: status}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

func (f *reportFixture) submit(t *testing.T, issueType, details string) *domain.ComplianceReport {
	t.Helper()
	report, err := f.svc.SubmitReport(context.Background(), SubmitReportInput{IssueType: issueType, FullDetails: details})
	require.NoError(t, err)
	return report
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %T: %v", err, err)
	assert.Equal(t, code, domainErr.Code, domainErr.Message)
}

func TestSubmitReport_AllIssueTypes(t *testing.T) {
	f := newReportFixture(t)
	details := "  The permit office asked for\n\"fees\" in cash.  "

	for _, issueType := range domain.IssueTypes {
		t.Run(string(issueType), func(t *testing.T) {
			report := f.submit(t, strings.ToLower(string(issueType)), details)

			assert.NotZero(t, report.ID)
			assert.Equal(t, issueType, report.IssueType)
			assert.Equal(t, domain.ReportStatusNew, report.Status)
			assert.Equal(t, domain.UrgencyMedium, report.Urgency)
			assert.Equal(t, details, report.FullDetails)
			assert.True(t, report.IsAnonymous)
			assert.Equal(t, `The permit office asked for "fees" in cash.`, report.Summary)
			assert.False(t, report.CreatedAt.IsZero())
		})
	}
}

func TestSubmitReport_RoundTrip(t *testing.T) {
	f := newReportFixture(t)
	submitted, err := f.svc.SubmitReport(context.Background(), SubmitReportInput{
		IssueType:   "Nepotism",
		Urgency:     "high",
		Summary:     "Director hired relatives",
		FullDetails: "Three relatives were hired without a posting.",
	})
	require.NoError(t, err)

	detail, err := f.svc.GetReport(context.Background(), f.moderator, submitted.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(submitted, detail.Report); diff != "" {
		t.Errorf("stored report mismatch (-submitted +fetched):\n%s", diff)
	}
	assert.Empty(t, detail.Notes)
	assert.Empty(t, detail.History)
}

func TestSubmitReport_SummaryPreviewTruncates(t *testing.T) {
	f := newReportFixture(t)
	report := f.submit(t, "OTHER", strings.Repeat("ab ", 100))

	assert.True(t, strings.HasSuffix(report.Summary, "..."))
	assert.LessOrEqual(t, len([]rune(report.Summary)), 123)
}

func TestSubmitReport_ValidationBeforePersistence(t *testing.T) {
	f := newReportFixture(t)
	cases := map[string]SubmitReportInput{
		"missing issue type": {FullDetails: "details"},
		"unknown issue type": {IssueType: "fraud", FullDetails: "details"},
		"blank details":      {IssueType: "OTHER", FullDetails: " \n\t"},
		"bad urgency":        {IssueType: "OTHER", Urgency: "urgent", FullDetails: "details"},
		"details too long":   {IssueType: "OTHER", FullDetails: strings.Repeat("x", 20001)},
		"summary too long":   {IssueType: "OTHER", Summary: strings.Repeat("s", 281), FullDetails: "details"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.SubmitReport(context.Background(), input)
			assertCode(t, err, apperrors.CodeValidation)
		})
	}
	assert.Zero(t, f.store.Calls("reports.Create"))
	assert.Empty(t, f.published)
}

func TestSubmitReport_EventCarriesNoReportText(t *testing.T) {
	f := newReportFixture(t)
	report := f.submit(t, "CORRUPTION", "secret allegation text")

	require.Len(t, f.published, 1)
	event := f.published[0]
	assert.Equal(t, events.EventReportSubmitted, event.Type)
	assert.Equal(t, report.ID, event.ReportID)
	assert.Nil(t, event.Actor.UserID)
	assert.Equal(t, events.ReportSubmittedPayload{IssueType: domain.IssueTypeCorruption, Urgency: domain.UrgencyMedium}, event.Payload)
}

func TestLifecycleScenario(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	report := f.submit(t, "corruption", "Contractor paid the inspector to skip the audit.")
	assert.Equal(t, domain.ReportStatusNew, report.Status)

	updated, err := f.svc.UpdateStatus(ctx, f.staff, report.ID, "InInvestigation", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusInInvestigation, updated.Status)
	assert.True(t, updated.UpdatedAt.After(report.UpdatedAt))
	assert.Equal(t, report.Version+1, updated.Version)

	note, err := f.svc.AddNote(ctx, f.staff, report.ID, "audit requested")
	require.NoError(t, err)
	assert.Equal(t, report.ID, note.ReportID)
	assert.Equal(t, f.staff.ID, note.AuthorID)

	detail, err := f.svc.GetReport(ctx, f.staff, report.ID)
	require.NoError(t, err)
	require.Len(t, detail.Notes, 1)
	assert.Equal(t, "audit requested", detail.Notes[0].Content)
	if diff := cmp.Diff(updated, detail.Report); diff != "" {
		t.Errorf("note must not touch the report (-before +after):\n%s", diff)
	}

	require.Len(t, detail.History, 1)
	entry := detail.History[0]
	assert.Equal(t, domain.ChangeTypeStatus, entry.ChangeType)
	require.NotNil(t, entry.ChangedByID)
	assert.Equal(t, f.staff.ID, *entry.ChangedByID)
	assert.Equal(t, map[string]any{"status": "NEW"}, entry.OldValue)
	assert.Equal(t, map[string]any{"status": "IN_INVESTIGATION"}, entry.NewValue)
}

func TestUpdateStatus_ClosedIsTerminal(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	report := f.submit(t, "MISCONDUCT", "details")

	closed, err := f.svc.UpdateStatus(ctx, f.admin, report.ID, "closed", nil)
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt)

	for _, next := range domain.ReportStatuses {
		_, err := f.svc.UpdateStatus(ctx, f.admin, report.ID, string(next), nil)
		assertCode(t, err, apperrors.CodeConflict)
	}

	_, err = f.svc.UpdateUrgency(ctx, f.admin, report.ID, "HIGH", nil)
	assertCode(t, err, apperrors.CodeConflict)
	_, err = f.svc.AssignReport(ctx, f.admin, report.ID, f.staff.ID)
	assertCode(t, err, apperrors.CodeConflict)

	current, err := f.svc.GetReport(ctx, f.admin, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusClosed, current.Report.Status)
}

func TestUpdateStatus_RejectsBackwardAndUnknown(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	report := f.submit(t, "OTHER", "details")

	_, err := f.svc.UpdateStatus(ctx, f.staff, report.ID, "PENDING_REVIEW", nil)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.staff, report.ID, "NEW", nil)
	assertCode(t, err, apperrors.CodeValidation)
	_, err = f.svc.UpdateStatus(ctx, f.staff, report.ID, "PENDING_REVIEW", nil)
	assertCode(t, err, apperrors.CodeValidation)

	reads := f.store.Calls("reports.GetByID")
	_, err = f.svc.UpdateStatus(ctx, f.staff, report.ID, "ARCHIVED", nil)
	assertCode(t, err, apperrors.CodeValidation)
	assert.Equal(t, reads, f.store.Calls("reports.GetByID"))
}

func TestUpdateStatus_NotFoundAndPermissions(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	report := f.submit(t, "OTHER", "details")

	_, err := f.svc.UpdateStatus(ctx, f.staff, 9999, "CLOSED", nil)
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.svc.UpdateStatus(ctx, f.moderator, report.ID, "CLOSED", nil)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.svc.UpdateStatus(ctx, nil, report.ID, "CLOSED", nil)
	assertCode(t, err, apperrors.CodeUnauthorized)

	suspended := *f.staff
	suspended.Status = domain.UserStatusSuspended
	_, err = f.svc.UpdateStatus(ctx, &suspended, report.ID, "CLOSED", nil)
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestUpdateStatus_StaleVersionRejected(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	report := f.submit(t, "OTHER", "details")
	staleVersion := report.Version

	_, err := f.svc.UpdateStatus(ctx, f.staff, report.ID, "PENDING_REVIEW", &staleVersion)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.admin, report.ID, "CLOSED", &staleVersion)
	assertCode(t, err, apperrors.CodeConflict)

	// a writer that read before the first change loses at the store
	stale, err := f.store.Reports().GetByID(ctx, report.ID)
	require.NoError(t, err)
	stale.Version = staleVersion
	err = f.store.Reports().Update(ctx, stale, nil)
	assertCode(t, mapRepoError(err, "report", nil), apperrors.CodeConflict)
}

func TestAddNote_LeavesReportUntouched(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	report := f.submit(t, "OTHER", "original claim")

	for i := 0; i < 3; i++ {
		_, err := f.svc.AddNote(ctx, f.moderator, report.ID, "note "+strconv.Itoa(i))
		require.NoError(t, err)
	}

	after, err := f.store.Reports().GetByID(ctx, report.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(report, after); diff != "" {
		t.Errorf("report changed (-before +after):\n%s", diff)
	}

	page, err := f.svc.ListNotes(ctx, f.staff, report.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "note 0", page.Items[0].Content)

	_, err = f.svc.AddNote(ctx, f.staff, report.ID, "   ")
	assertCode(t, err, apperrors.CodeValidation)
	_, err = f.svc.AddNote(ctx, f.staff, 9999, "orphan")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestUpdateUrgency(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	report := f.submit(t, "OTHER", "details")

	updated, err := f.svc.UpdateUrgency(ctx, f.staff, report.ID, "low", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.UrgencyLow, updated.Urgency)

	same, err := f.svc.UpdateUrgency(ctx, f.staff, report.ID, "LOW", nil)
	require.NoError(t, err)
	assert.Equal(t, updated.Version, same.Version)

	_, err = f.svc.UpdateUrgency(ctx, f.moderator, report.ID, "HIGH", nil)
	assertCode(t, err, apperrors.CodeForbidden)
	_, err = f.svc.UpdateUrgency(ctx, f.staff, report.ID, "critical", nil)
	assertCode(t, err, apperrors.CodeValidation)

	history, err := f.svc.ListHistory(ctx, f.staff, report.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ChangeTypeUrgency, history[0].ChangeType)
}

func TestAssignReport(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	report := f.submit(t, "OTHER", "details")

	assigned, err := f.svc.AssignReport(ctx, f.admin, report.ID, f.staff.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedToID)
	assert.Equal(t, f.staff.ID, *assigned.AssignedToID)

	_, err = f.svc.AssignReport(ctx, f.admin, report.ID, f.moderator.ID)
	assertCode(t, err, apperrors.CodeValidation)
	_, err = f.svc.AssignReport(ctx, f.admin, report.ID, "00000000-0000-0000-0000-0000000000aa")
	assertCode(t, err, apperrors.CodeValidation)
	_, err = f.svc.AssignReport(ctx, f.admin, report.ID, "not-a-uuid")
	assertCode(t, err, apperrors.CodeValidation)
	_, err = f.svc.AssignReport(ctx, f.staff, report.ID, f.staff.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	cleared, err := f.svc.AssignReport(ctx, f.admin, report.ID, "")
	require.NoError(t, err)
	assert.Nil(t, cleared.AssignedToID)

	history, err := f.svc.ListHistory(ctx, f.admin, report.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, map[string]any{"assigned_to_id": f.staff.ID}, history[1].OldValue)
	assert.Equal(t, map[string]any{"assigned_to_id": nil}, history[1].NewValue)
}

func TestAssignReport_SameAssigneeIsNoop(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	report := f.submit(t, "MISCONDUCT", "details")

	unchanged, err := f.svc.AssignReport(ctx, f.admin, report.ID, "")
	require.NoError(t, err)
	assert.Equal(t, report.Version, unchanged.Version)

	first, err := f.svc.AssignReport(ctx, f.admin, report.ID, f.staff.ID)
	require.NoError(t, err)
	published := len(f.published)

	again, err := f.svc.AssignReport(ctx, f.admin, report.ID, f.staff.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Version, again.Version)
	require.NotNil(t, again.AssignedToID)
	assert.Equal(t, f.staff.ID, *again.AssignedToID)
	assert.Len(t, f.published, published)

	history, err := f.svc.ListHistory(ctx, f.admin, report.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestListReports_StatusFilterOrdering(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	var newIDs []int64
	for i := 0; i < 5; i++ {
		report := f.submit(t, "OTHER", "report "+strconv.Itoa(i))
		if i%2 == 0 {
			_, err := f.svc.UpdateStatus(ctx, f.staff, report.ID, "PENDING_REVIEW", nil)
			require.NoError(t, err)
			continue
		}
		newIDs = append(newIDs, report.ID)
	}

	page, err := f.svc.ListReports(ctx, f.moderator, ReportQuery{Status: "New"})
	require.NoError(t, err)
	require.Len(t, page.Items, len(newIDs))
	assert.Equal(t, len(newIDs), page.Total)
	for i, item := range page.Items {
		assert.Equal(t, domain.ReportStatusNew, item.Status)
		if i > 0 {
			assert.False(t, item.CreatedAt.After(page.Items[i-1].CreatedAt))
		}
	}
	assert.Equal(t, newIDs[len(newIDs)-1], page.Items[0].ID)

	empty, err := f.svc.ListReports(ctx, f.moderator, ReportQuery{Status: "CLOSED"})
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)

	_, err = f.svc.ListReports(ctx, f.moderator, ReportQuery{Status: "OPEN"})
	assertCode(t, err, apperrors.CodeValidation)
}

func TestListReports_SearchMatchesID(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	for i := 1; i <= 401; i++ {
		f.submit(t, "OTHER", "road works complaint")
	}

	page, err := f.svc.ListReports(ctx, f.staff, ReportQuery{Search: "401", Limit: 100})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(401), page.Items[0].ID)

	page, err = f.svc.ListReports(ctx, f.staff, ReportQuery{Search: "ROAD", Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 401, page.Total)
	assert.Len(t, page.Items, 100)
	assert.Equal(t, 5, page.TotalPages)
}

func TestListReports_Pagination(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		f.submit(t, "OTHER", "details")
	}

	page, err := f.svc.ListReports(ctx, f.staff, ReportQuery{Page: 3, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 3, page.Page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Items[0].ID)
}

func TestPersistenceRetry(t *testing.T) {
	transient := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	retrier := persistence.NewRetrier(config.PersistenceConfig{
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  2 * time.Millisecond,
	}, nil)
	f := newReportFixture(t, func(deps *ReportDependencies) { deps.Retrier = retrier })

	failures := 2
	f.store.Fail = func(op string) error {
		if op == "reports.Create" && failures > 0 {
			failures--
			return transient
		}
		return nil
	}
	report := f.submit(t, "OTHER", "details")
	assert.NotZero(t, report.ID)
	assert.Equal(t, 3, f.store.Calls("reports.Create"))

	f.store.Fail = func(op string) error {
		if op == "reports.Create" {
			return transient
		}
		return nil
	}
	_, err := f.svc.SubmitReport(context.Background(), SubmitReportInput{IssueType: "OTHER", FullDetails: "again"})
	assertCode(t, err, apperrors.CodePersistence)
	assert.NotContains(t, err.(*apperrors.DomainError).Message, "refused")
	assert.Equal(t, 6, f.store.Calls("reports.Create"))
}

func TestUpdateStatus_RetriesRolledBackCommit(t *testing.T) {
	transient := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}
	retrier := persistence.NewRetrier(config.PersistenceConfig{
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  2 * time.Millisecond,
	}, nil)
	f := newReportFixture(t, func(deps *ReportDependencies) { deps.Retrier = retrier })
	ctx := context.Background()
	report := f.submit(t, "CORRUPTION", "details")

	failures := 1
	f.store.Fail = func(op string) error {
		if op == "reports.Update.commit" && failures > 0 {
			failures--
			return transient
		}
		return nil
	}
	updated, err := f.svc.UpdateStatus(ctx, f.staff, report.ID, "IN_INVESTIGATION", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusInInvestigation, updated.Status)
	assert.Equal(t, report.Version+1, updated.Version)
	assert.Equal(t, 2, f.store.Calls("reports.Update.commit"))

	history, err := f.svc.ListHistory(ctx, f.admin, report.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestStats_UsesCache(t *testing.T) {
	statsCache := new(mockStatsCache)
	f := newReportFixture(t, func(deps *ReportDependencies) { deps.StatsCache = statsCache })
	ctx := context.Background()

	statsCache.On("Invalidate", mock.Anything).Return(nil)
	f.submit(t, "OTHER", "one")
	f.submit(t, "CORRUPTION", "two")

	statsCache.On("Get", mock.Anything).Return(nil, nil).Once()
	statsCache.On("Set", mock.Anything, mock.AnythingOfType("*domain.ReportStats")).Return(nil).Once()
	stats, err := f.svc.Stats(ctx, f.moderator)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[domain.ReportStatusNew])
	assert.Equal(t, 0, stats.ByStatus[domain.ReportStatusClosed])
	assert.Equal(t, 1, f.store.Calls("reports.Stats"))

	cached := domain.NewReportStats()
	cached.Total = 42
	statsCache.On("Get", mock.Anything).Return(cached, nil).Once()
	stats, err = f.svc.Stats(ctx, f.moderator)
	require.NoError(t, err)
	assert.Equal(t, 42, stats.Total)
	assert.Equal(t, 1, f.store.Calls("reports.Stats"))

	statsCache.AssertNumberOfCalls(t, "Invalidate", 2)
	statsCache.AssertExpectations(t)
}
