package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/woreda-portal/compliance-service/internal/cache"
	"github.com/woreda-portal/compliance-service/internal/config"
	"github.com/woreda-portal/compliance-service/internal/domain"
	"github.com/woreda-portal/compliance-service/internal/events"
	"github.com/woreda-portal/compliance-service/internal/persistence"
	"github.com/woreda-portal/compliance-service/internal/repository"
	apperrors "github.com/woreda-portal/compliance-service/pkg/util/errorutil"
)

const (
	maxNoteLength    = 5000
	detailNotesLimit = 200
)

// ReportService coordinates the compliance report lifecycle.
type ReportService struct {
	reports    repository.ReportRepository
	notes      repository.AdminNoteRepository
	history    repository.ReportHistoryRepository
	users      repository.UserRepository
	stats      cache.StatsCache
	dispatcher events.Dispatcher
	retrier    *persistence.Retrier
	cfg        config.ReportsConfig
	logger     *zap.Logger
	now        func() time.Time
}

// ReportDependencies bundles collaborators for the report service.
type ReportDependencies struct {
	ReportRepo  repository.ReportRepository
	NoteRepo    repository.AdminNoteRepository
	HistoryRepo repository.ReportHistoryRepository
	UserRepo    repository.UserRepository
	StatsCache  cache.StatsCache
	Dispatcher  events.Dispatcher
	Retrier     *persistence.Retrier
	Config      config.ReportsConfig
	Logger      *zap.Logger
}

// SubmitReportInput is the anonymous intake payload.
type SubmitReportInput struct {
	IssueType   string
	Urgency     string
	Summary     string
	FullDetails string
}

// ReportQuery describes a staff listing request. Enum fields accept a
// comma separated list of values.
type ReportQuery struct {
	Status      string
	IssueType   string
	Urgency     string
	AssignedTo  string
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	Limit       int
}

// ReportDetail is a report together with its notes and audit trail.
type ReportDetail struct {
	Report  *domain.ComplianceReport
	Notes   []domain.AdminNote
	History []domain.ReportHistory
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	stats := deps.StatsCache
	if stats == nil {
		stats = cache.NopStatsCache{}
	}
	cfg := deps.Config
	defaults := config.DefaultReportsConfig()
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = defaults.DefaultPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = defaults.MaxPageSize
	}
	if cfg.SummaryPreviewLength <= 0 {
		cfg.SummaryPreviewLength = defaults.SummaryPreviewLength
	}
	if cfg.MaxDetailsLength <= 0 {
		cfg.MaxDetailsLength = defaults.MaxDetailsLength
	}
	if cfg.MaxSummaryLength <= 0 {
		cfg.MaxSummaryLength = defaults.MaxSummaryLength
	}
	return &ReportService{
		reports:    deps.ReportRepo,
		notes:      deps.NoteRepo,
		history:    deps.HistoryRepo,
		users:      deps.UserRepo,
		stats:      stats,
		dispatcher: deps.Dispatcher,
		retrier:    deps.Retrier,
		cfg:        cfg,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SubmitReport stores an anonymous report. Nothing identifying the
// submitter is accepted, stored or logged.
func (s *ReportService) SubmitReport(ctx context.Context, input SubmitReportInput) (*domain.ComplianceReport, error) {
	report, err := s.buildReport(input)
	if err != nil {
		return nil, err
	}

	if err := storeCall(ctx, s.retrier, "reports.create", func(ctx context.Context) error {
		return s.reports.Create(ctx, report)
	}); err != nil {
		return nil, mapRepoError(err, "report", nil)
	}

	s.logger.Info("report submitted",
		zap.Int64("report_id", report.ID),
		zap.String("issue_type", string(report.IssueType)),
		zap.String("urgency", string(report.Urgency)))
	s.invalidateStats(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventReportSubmitted,
		ReportID: report.ID,
		Payload: events.ReportSubmittedPayload{
			IssueType: report.IssueType,
			Urgency:   report.Urgency,
		},
	})
	return report, nil
}

func (s *ReportService) buildReport(input SubmitReportInput) (*domain.ComplianceReport, error) {
	details := map[string]any{}

	issueType, ok := domain.ParseIssueType(input.IssueType)
	if !ok {
		details["issue_type"] = "must be one of CORRUPTION, MISCONDUCT, NEPOTISM, OTHER"
	}

	urgency := domain.UrgencyMedium
	if strings.TrimSpace(input.Urgency) != "" {
		parsed, ok := domain.ParseUrgency(input.Urgency)
		if !ok {
			details["urgency"] = "must be one of HIGH, MEDIUM, LOW"
		}
		urgency = parsed
	}

	if strings.TrimSpace(input.FullDetails) == "" {
		details["full_details"] = "is required"
	} else if utf8.RuneCountInString(input.FullDetails) > s.cfg.MaxDetailsLength {
		details["full_details"] = "is too long"
	}

	summary := strings.TrimSpace(input.Summary)
	if summary == "" {
		summary = previewSummary(input.FullDetails, s.cfg.SummaryPreviewLength)
	} else if utf8.RuneCountInString(summary) > s.cfg.MaxSummaryLength {
		details["summary"] = "is too long"
	}

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid report submission", details)
	}

	return &domain.ComplianceReport{
		IssueType:   issueType,
		Urgency:     urgency,
		Summary:     summary,
		FullDetails: input.FullDetails,
		Status:      domain.ReportStatusNew,
		IsAnonymous: true,
	}, nil
}

// previewSummary collapses whitespace and truncates to limit runes.
func previewSummary(fullDetails string, limit int) string {
	collapsed := strings.Join(strings.Fields(fullDetails), " ")
	runes := []rune(collapsed)
	if len(runes) <= limit {
		return collapsed
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}

// UpdateStatus moves a report along its lifecycle. A non-nil
// expectedVersion must match the stored version.
func (s *ReportService) UpdateStatus(ctx context.Context, actor *domain.User, reportID int64, rawStatus string, expectedVersion *int) (*domain.ComplianceReport, error) {
	if err := authorize(actor, domain.CapTransitionStatus); err != nil {
		return nil, err
	}
	next, ok := domain.ParseReportStatus(rawStatus)
	if !ok {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": rawStatus})
	}

	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(report, expectedVersion); err != nil {
		return nil, err
	}

	previous := report.Status
	if err := domain.ValidateTransition(previous, next); err != nil {
		return nil, transitionError(err, report, next)
	}

	report.Status = next
	if next == domain.ReportStatusClosed {
		closedAt := s.now()
		report.ClosedAt = &closedAt
	}

	entry := newHistory(actor, domain.ChangeTypeStatus, "status", string(previous), string(next))
	if err := s.saveReport(ctx, report, entry); err != nil {
		return nil, err
	}

	s.logger.Info("report status changed",
		zap.Int64("report_id", report.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(next)),
		zap.String("actor_id", actor.ID))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventReportStatusChanged,
		ReportID: report.ID,
		Actor:    events.ActorFor(actor),
		Payload:  events.ReportStatusChangedPayload{OldStatus: previous, NewStatus: next},
	})
	return report, nil
}

func transitionError(err error, report *domain.ComplianceReport, requested domain.ReportStatus) error {
	details := map[string]any{
		"report_id": report.ID,
		"current":   report.Status,
		"requested": requested,
	}
	if errors.Is(err, domain.ErrReportClosed) {
		return apperrors.NewConflict("report is closed", details)
	}
	details["allowed"] = domain.NextStatuses(report.Status)
	return apperrors.NewValidationError("status transition not allowed", details)
}

// UpdateUrgency re-triages an open report. Setting the current urgency
// again is a no-op.
func (s *ReportService) UpdateUrgency(ctx context.Context, actor *domain.User, reportID int64, rawUrgency string, expectedVersion *int) (*domain.ComplianceReport, error) {
	if err := authorize(actor, domain.CapSetUrgency); err != nil {
		return nil, err
	}
	next, ok := domain.ParseUrgency(rawUrgency)
	if !ok {
		return nil, apperrors.NewValidationError("unknown urgency", map[string]any{"urgency": rawUrgency})
	}

	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(report, expectedVersion); err != nil {
		return nil, err
	}
	if report.IsClosed() {
		return nil, apperrors.NewConflict("report is closed", map[string]any{"report_id": report.ID})
	}
	if report.Urgency == next {
		return report, nil
	}

	previous := report.Urgency
	report.Urgency = next
	entry := newHistory(actor, domain.ChangeTypeUrgency, "urgency", string(previous), string(next))
	if err := s.saveReport(ctx, report, entry); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventReportUrgencyChanged,
		ReportID: report.ID,
		Actor:    events.ActorFor(actor),
		Payload:  events.ReportUrgencyChangedPayload{OldUrgency: previous, NewUrgency: next},
	})
	return report, nil
}

// AssignReport sets the staff member responsible for a report. An empty
// assigneeID clears the assignment.
func (s *ReportService) AssignReport(ctx context.Context, actor *domain.User, reportID int64, assigneeID string) (*domain.ComplianceReport, error) {
	if err := authorize(actor, domain.CapAssignReport); err != nil {
		return nil, err
	}

	var next *string
	assigneeID = strings.TrimSpace(assigneeID)
	if assigneeID != "" {
		if _, err := uuid.Parse(assigneeID); err != nil {
			return nil, apperrors.NewValidationError("invalid assignee id", map[string]any{"assignee_id": assigneeID})
		}
		var assignee *domain.User
		err := storeCall(ctx, s.retrier, "users.get", func(ctx context.Context) error {
			var err error
			assignee, err = s.users.GetByID(ctx, assigneeID)
			return err
		})
		if err != nil {
			mapped := mapRepoError(err, "assignee", map[string]any{"assignee_id": assigneeID})
			if apperrors.HasCode(mapped, apperrors.CodeNotFound) {
				return nil, apperrors.NewValidationError("assignee does not exist", map[string]any{"assignee_id": assigneeID})
			}
			return nil, mapped
		}
		if !assignee.CanBeAssigned() {
			return nil, apperrors.NewValidationError("assignee must be an active admin or staff member",
				map[string]any{"assignee_id": assigneeID})
		}
		next = &assignee.ID
	}

	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.IsClosed() {
		return nil, apperrors.NewConflict("report is closed", map[string]any{"report_id": report.ID})
	}

	previous := report.AssignedToID
	if derefOrNil(previous) == derefOrNil(next) {
		return report, nil
	}
	report.AssignedToID = next
	entry := newHistory(actor, domain.ChangeTypeAssignee, "assigned_to_id", derefOrNil(previous), derefOrNil(next))
	if err := s.saveReport(ctx, report, entry); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventReportAssigned,
		ReportID: report.ID,
		Actor:    events.ActorFor(actor),
		Payload:  events.ReportAssignedPayload{OldAssigneeID: previous, NewAssigneeID: next},
	})
	return report, nil
}

// AddNote appends a staff note. The report itself is left untouched.
func (s *ReportService) AddNote(ctx context.Context, actor *domain.User, reportID int64, content string) (*domain.AdminNote, error) {
	if err := authorize(actor, domain.CapAddNote); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("note content is required", map[string]any{"content": "is required"})
	}
	if utf8.RuneCountInString(content) > maxNoteLength {
		return nil, apperrors.NewValidationError("note content is too long", map[string]any{"content": "is too long"})
	}

	if _, err := s.loadReport(ctx, reportID); err != nil {
		return nil, err
	}

	note := &domain.AdminNote{ReportID: reportID, AuthorID: actor.ID, Content: content}
	if err := storeCall(ctx, s.retrier, "notes.create", func(ctx context.Context) error {
		return s.notes.Create(ctx, note)
	}); err != nil {
		return nil, mapRepoError(err, "report", map[string]any{"report_id": reportID})
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventReportNoteAdded,
		ReportID: reportID,
		Actor:    events.ActorFor(actor),
		Payload:  events.ReportNoteAddedPayload{NoteID: note.ID, AuthorID: note.AuthorID},
	})
	return note, nil
}

// ListNotes pages through a report's notes, oldest first.
func (s *ReportService) ListNotes(ctx context.Context, actor *domain.User, reportID int64, page, limit int) (*domain.Page[domain.AdminNote], error) {
	if err := authorize(actor, domain.CapViewReports); err != nil {
		return nil, err
	}
	if _, err := s.loadReport(ctx, reportID); err != nil {
		return nil, err
	}

	page, limit, offset := pageWindow(page, limit, s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	var (
		items []domain.AdminNote
		total int
	)
	if err := storeCall(ctx, s.retrier, "notes.list", func(ctx context.Context) error {
		var err error
		items, total, err = s.notes.ListByReport(ctx, reportID, limit, offset)
		return err
	}); err != nil {
		return nil, mapRepoError(err, "report", nil)
	}
	return domain.NewPage(items, total, page, limit), nil
}

// ListHistory returns the audit trail of a report, oldest first.
func (s *ReportService) ListHistory(ctx context.Context, actor *domain.User, reportID int64) ([]domain.ReportHistory, error) {
	if err := authorize(actor, domain.CapViewReports); err != nil {
		return nil, err
	}
	if _, err := s.loadReport(ctx, reportID); err != nil {
		return nil, err
	}
	return s.listHistory(ctx, reportID)
}

func (s *ReportService) listHistory(ctx context.Context, reportID int64) ([]domain.ReportHistory, error) {
	var entries []domain.ReportHistory
	if err := storeCall(ctx, s.retrier, "history.list", func(ctx context.Context) error {
		var err error
		entries, err = s.history.ListByReport(ctx, reportID)
		return err
	}); err != nil {
		return nil, mapRepoError(err, "report", nil)
	}
	return entries, nil
}

// GetReport returns a report with its notes and history.
func (s *ReportService) GetReport(ctx context.Context, actor *domain.User, reportID int64) (*ReportDetail, error) {
	if err := authorize(actor, domain.CapViewReports); err != nil {
		return nil, err
	}
	report, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	var notes []domain.AdminNote
	if err := storeCall(ctx, s.retrier, "notes.list", func(ctx context.Context) error {
		var err error
		notes, _, err = s.notes.ListByReport(ctx, reportID, detailNotesLimit, 0)
		return err
	}); err != nil {
		return nil, mapRepoError(err, "report", nil)
	}

	history, err := s.listHistory(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return &ReportDetail{Report: report, Notes: notes, History: history}, nil
}

// ListReports filters and pages reports, newest first.
func (s *ReportService) ListReports(ctx context.Context, actor *domain.User, query ReportQuery) (*domain.Page[domain.ComplianceReport], error) {
	if err := authorize(actor, domain.CapViewReports); err != nil {
		return nil, err
	}
	filter, err := s.buildFilter(query)
	if err != nil {
		return nil, err
	}

	page, limit, offset := pageWindow(query.Page, query.Limit, s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	filter.Limit = limit
	filter.Offset = offset

	var (
		items []domain.ComplianceReport
		total int
	)
	if err := storeCall(ctx, s.retrier, "reports.list", func(ctx context.Context) error {
		var err error
		items, total, err = s.reports.List(ctx, filter)
		return err
	}); err != nil {
		return nil, mapRepoError(err, "report", nil)
	}
	return domain.NewPage(items, total, page, limit), nil
}

func (s *ReportService) buildFilter(query ReportQuery) (repository.ReportFilter, error) {
	filter := repository.ReportFilter{CreatedFrom: query.CreatedFrom, CreatedTo: query.CreatedTo}
	details := map[string]any{}

	for _, raw := range splitList(query.Status) {
		status, ok := domain.ParseReportStatus(raw)
		if !ok {
			details["status"] = raw
			continue
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range splitList(query.IssueType) {
		issueType, ok := domain.ParseIssueType(raw)
		if !ok {
			details["issue_type"] = raw
			continue
		}
		filter.IssueTypes = append(filter.IssueTypes, issueType)
	}
	for _, raw := range splitList(query.Urgency) {
		urgency, ok := domain.ParseUrgency(raw)
		if !ok {
			details["urgency"] = raw
			continue
		}
		filter.Urgencies = append(filter.Urgencies, urgency)
	}
	if assignee := strings.TrimSpace(query.AssignedTo); assignee != "" {
		if _, err := uuid.Parse(assignee); err != nil {
			details["assigned_to"] = assignee
		} else {
			filter.AssignedToID = &assignee
		}
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		filter.SearchText = &search
	}
	if query.CreatedFrom != nil && query.CreatedTo != nil && query.CreatedFrom.After(*query.CreatedTo) {
		details["created_from"] = "must not be after created_to"
	}

	if len(details) > 0 {
		return filter, apperrors.NewValidationError("invalid report filter", details)
	}
	return filter, nil
}

// Stats returns per-status and per-urgency counts, served from cache
// while it is warm.
func (s *ReportService) Stats(ctx context.Context, actor *domain.User) (*domain.ReportStats, error) {
	if err := authorize(actor, domain.CapViewReports); err != nil {
		return nil, err
	}

	cached, err := s.stats.Get(ctx)
	if err != nil {
		s.logger.Warn("stats cache read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	var stats *domain.ReportStats
	if err := storeCall(ctx, s.retrier, "reports.stats", func(ctx context.Context) error {
		var err error
		stats, err = s.reports.Stats(ctx)
		return err
	}); err != nil {
		return nil, mapRepoError(err, "report", nil)
	}

	if err := s.stats.Set(ctx, stats); err != nil {
		s.logger.Warn("stats cache write failed", zap.Error(err))
	}
	return stats, nil
}

func (s *ReportService) loadReport(ctx context.Context, reportID int64) (*domain.ComplianceReport, error) {
	var report *domain.ComplianceReport
	err := storeCall(ctx, s.retrier, "reports.get", func(ctx context.Context) error {
		var err error
		report, err = s.reports.GetByID(ctx, reportID)
		return err
	})
	if err != nil {
		return nil, mapRepoError(err, "report", map[string]any{"report_id": reportID})
	}
	return report, nil
}

func (s *ReportService) saveReport(ctx context.Context, report *domain.ComplianceReport, entry *domain.ReportHistory) error {
	if err := storeCall(ctx, s.retrier, "reports.update", func(ctx context.Context) error {
		return s.reports.Update(ctx, report, entry)
	}); err != nil {
		return mapRepoError(err, "report", map[string]any{"report_id": report.ID})
	}
	s.invalidateStats(ctx)
	return nil
}

func (s *ReportService) invalidateStats(ctx context.Context) {
	if err := s.stats.Invalidate(ctx); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

func (s *ReportService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("report_id", event.ReportID),
			zap.Error(err))
	}
}

func checkVersion(report *domain.ComplianceReport, expected *int) error {
	if expected == nil || *expected == report.Version {
		return nil
	}
	return apperrors.NewConflict("report was modified by another request; reload and retry", map[string]any{
		"report_id":        report.ID,
		"expected_version": *expected,
		"current_version":  report.Version,
	})
}

func newHistory(actor *domain.User, changeType domain.ReportChangeType, field string, oldValue, newValue any) *domain.ReportHistory {
	actorID := actor.ID
	return &domain.ReportHistory{
		ChangedByID: &actorID,
		ChangeType:  changeType,
		OldValue:    map[string]any{field: oldValue},
		NewValue:    map[string]any{field: newValue},
	}
}

func derefOrNil(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
