// Package repotest provides in-memory repository implementations for tests.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/woreda-portal/compliance-service/internal/domain"
	"github.com/woreda-portal/compliance-service/internal/repository"
)

// Store keeps reports, notes, history and users in memory. Every write
// advances an internal clock by one second so timestamps strictly increase.
type Store struct {
	mu sync.Mutex

	now     time.Time
	reports map[int64]domain.ComplianceReport
	notes   []domain.AdminNote
	history []domain.ReportHistory
	users   map[string]domain.User

	nextReportID  int64
	nextNoteID    int64
	nextHistoryID int64

	// Fail, when set, is consulted before every operation. A non-nil
	// return aborts the operation with that error. Report updates also
	// consult it as "reports.Update.commit" once the version check passed.
	Fail func(op string) error

	calls map[string]int
}

// NewStore returns an empty store whose clock starts at start.
func NewStore(start time.Time) *Store {
	return &Store{
		now:     start.UTC(),
		reports: make(map[int64]domain.ComplianceReport),
		users:   make(map[string]domain.User),
		calls:   make(map[string]int),
	}
}

// Calls returns how many times op was attempted.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Reports exposes the store as a ReportRepository.
func (s *Store) Reports() repository.ReportRepository { return reportRepo{s} }

// Notes exposes the store as an AdminNoteRepository.
func (s *Store) Notes() repository.AdminNoteRepository { return noteRepo{s} }

// History exposes the store as a ReportHistoryRepository.
func (s *Store) History() repository.ReportHistoryRepository { return historyRepo{s} }

// Users exposes the store as a UserRepository.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// must be called with mu held
func (s *Store) enter(ctx context.Context, op string) error {
	s.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Fail != nil {
		return s.Fail(op)
	}
	return nil
}

// commit lets Fail abort a write after its checks pass, leaving the store
// as a rolled back transaction would.
func (s *Store) commit(op string) error {
	op += ".commit"
	s.calls[op]++
	if s.Fail != nil {
		return s.Fail(op)
	}
	return nil
}

func (s *Store) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

type reportRepo struct{ s *Store }

func (r reportRepo) Create(ctx context.Context, report *domain.ComplianceReport) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "reports.Create"); err != nil {
		return err
	}
	s.nextReportID++
	now := s.tick()
	report.ID = s.nextReportID
	report.Version = 1
	report.CreatedAt = now
	report.UpdatedAt = now
	s.reports[report.ID] = cloneReport(*report)
	return nil
}

func (r reportRepo) Update(ctx context.Context, report *domain.ComplianceReport, history *domain.ReportHistory) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "reports.Update"); err != nil {
		return err
	}
	stored, ok := s.reports[report.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != report.Version {
		return repository.ErrVersionConflict
	}
	if err := s.commit("reports.Update"); err != nil {
		return err
	}

	now := s.tick()
	stored.Summary = report.Summary
	stored.Status = report.Status
	stored.Urgency = report.Urgency
	stored.AssignedToID = cloneString(report.AssignedToID)
	stored.ClosedAt = cloneTime(report.ClosedAt)
	stored.Version++
	stored.UpdatedAt = now
	s.reports[report.ID] = stored

	report.Version = stored.Version
	report.UpdatedAt = now

	if history != nil {
		s.nextHistoryID++
		history.ID = s.nextHistoryID
		history.ReportID = report.ID
		history.CreatedAt = now
		s.history = append(s.history, *history)
	}
	return nil
}

func (r reportRepo) GetByID(ctx context.Context, id int64) (*domain.ComplianceReport, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "reports.GetByID"); err != nil {
		return nil, err
	}
	stored, ok := s.reports[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	report := cloneReport(stored)
	return &report, nil
}

func (r reportRepo) List(ctx context.Context, filter repository.ReportFilter) ([]domain.ComplianceReport, int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "reports.List"); err != nil {
		return nil, 0, err
	}

	matched := []domain.ComplianceReport{}
	for _, report := range s.reports {
		if matchesReport(report, filter) {
			matched = append(matched, cloneReport(report))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	return window(matched, filter.Limit, filter.Offset, 20), len(matched), nil
}

func (r reportRepo) Stats(ctx context.Context) (*domain.ReportStats, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "reports.Stats"); err != nil {
		return nil, err
	}
	stats := domain.NewReportStats()
	for _, report := range s.reports {
		stats.Total++
		stats.ByStatus[report.Status]++
		stats.ByUrgency[report.Urgency]++
	}
	return stats, nil
}

func matchesReport(report domain.ComplianceReport, filter repository.ReportFilter) bool {
	if len(filter.Statuses) > 0 && !contains(filter.Statuses, report.Status) {
		return false
	}
	if len(filter.IssueTypes) > 0 && !contains(filter.IssueTypes, report.IssueType) {
		return false
	}
	if len(filter.Urgencies) > 0 && !contains(filter.Urgencies, report.Urgency) {
		return false
	}
	if filter.AssignedToID != nil && (report.AssignedToID == nil || *report.AssignedToID != *filter.AssignedToID) {
		return false
	}
	if filter.CreatedFrom != nil && report.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && report.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	if filter.SearchText != nil {
		term := strings.ToLower(strings.TrimSpace(*filter.SearchText))
		if term != "" &&
			!strings.Contains(strings.ToLower(report.Summary), term) &&
			!strings.Contains(strconv.FormatInt(report.ID, 10), term) {
			return false
		}
	}
	return true
}

type noteRepo struct{ s *Store }

func (r noteRepo) Create(ctx context.Context, note *domain.AdminNote) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "notes.Create"); err != nil {
		return err
	}
	if _, ok := s.reports[note.ReportID]; !ok {
		return fmt.Errorf("report %d does not exist", note.ReportID)
	}
	s.nextNoteID++
	now := s.tick()
	note.ID = s.nextNoteID
	note.CreatedAt = now
	note.UpdatedAt = now
	s.notes = append(s.notes, *note)
	return nil
}

func (r noteRepo) GetByID(ctx context.Context, id int64) (*domain.AdminNote, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "notes.GetByID"); err != nil {
		return nil, err
	}
	for _, note := range s.notes {
		if note.ID == id {
			found := note
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r noteRepo) ListByReport(ctx context.Context, reportID int64, limit, offset int) ([]domain.AdminNote, int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "notes.ListByReport"); err != nil {
		return nil, 0, err
	}
	matched := []domain.AdminNote{}
	for _, note := range s.notes {
		if note.ReportID == reportID {
			matched = append(matched, note)
		}
	}
	return window(matched, limit, offset, 50), len(matched), nil
}

type historyRepo struct{ s *Store }

func (r historyRepo) ListByReport(ctx context.Context, reportID int64) ([]domain.ReportHistory, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "history.ListByReport"); err != nil {
		return nil, err
	}
	result := []domain.ReportHistory{}
	for _, entry := range s.history {
		if entry.ReportID == reportID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *domain.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "users.Create"); err != nil {
		return err
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := s.tick()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

func (r userRepo) Update(ctx context.Context, user *domain.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "users.Update"); err != nil {
		return err
	}
	if _, ok := s.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = s.tick()
	s.users[user.ID] = *user
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "users.GetByID"); err != nil {
		return nil, err
	}
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "users.GetByEmail"); err != nil {
		return nil, err
	}
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			found := user
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r userRepo) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "users.List"); err != nil {
		return nil, 0, err
	}
	matched := []domain.User{}
	for _, user := range s.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.Status != nil && user.Status != *filter.Status {
			continue
		}
		if filter.SearchText != nil {
			term := strings.ToLower(strings.TrimSpace(*filter.SearchText))
			if term != "" &&
				!strings.Contains(strings.ToLower(user.Email), term) &&
				!strings.Contains(strings.ToLower(user.Name), term) {
				continue
			}
		}
		matched = append(matched, user)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return window(matched, filter.Limit, filter.Offset, 50), len(matched), nil
}

func (r userRepo) TouchLastLogin(ctx context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "users.TouchLastLogin"); err != nil {
		return err
	}
	user, ok := s.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := s.tick()
	user.LastLoginAt = &now
	s.users[id] = user
	return nil
}

func window[T any](items []T, limit, offset, defaultLimit int) []T {
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func contains[T comparable](haystack []T, needle T) bool {
	for _, candidate := range haystack {
		if candidate == needle {
			return true
		}
	}
	return false
}

func cloneReport(report domain.ComplianceReport) domain.ComplianceReport {
	report.AssignedToID = cloneString(report.AssignedToID)
	report.ClosedAt = cloneTime(report.ClosedAt)
	return report
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
