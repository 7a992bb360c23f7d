package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/woreda-portal/compliance-service/internal/api/dto"
	"github.com/woreda-portal/compliance-service/internal/service"
)

// StaffReportsHandler handles report triage endpoints.
type StaffReportsHandler struct {
	reports *service.ReportService
}

// NewStaffReportsHandler constructs handler.
func NewStaffReportsHandler(reports *service.ReportService) *StaffReportsHandler {
	return &StaffReportsHandler{reports: reports}
}

// List GET /staff/reports.
func (h *StaffReportsHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	query, err := parseReportQuery(c)
	if err != nil {
		return err
	}
	page, err := h.reports.ListReports(c.UserContext(), user, query)
	if err != nil {
		return err
	}
	items := make([]dto.ReportSummary, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewReportSummary(&page.Items[i]))
	}
	return c.JSON(fiber.Map{"data": items, "meta": dto.NewPageMeta(page)})
}

// Stats GET /staff/reports/stats.
func (h *StaffReportsHandler) Stats(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	stats, err := h.reports.Stats(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Get GET /staff/reports/:id.
func (h *StaffReportsHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := reportIDParam(c)
	if err != nil {
		return err
	}
	detail, err := h.reports.GetReport(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	resp := dto.ReportDetailResponse{
		ReportResponse: dto.NewReportResponse(detail.Report),
		Notes:          make([]dto.NoteResponse, 0, len(detail.Notes)),
		History:        make([]dto.HistoryResponse, 0, len(detail.History)),
	}
	for i := range detail.Notes {
		resp.Notes = append(resp.Notes, dto.NewNoteResponse(&detail.Notes[i]))
	}
	for i := range detail.History {
		resp.History = append(resp.History, dto.NewHistoryResponse(&detail.History[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// UpdateStatus PATCH /staff/reports/:id/status.
func (h *StaffReportsHandler) UpdateStatus(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := reportIDParam(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	report, err := h.reports.UpdateStatus(c.UserContext(), user, id, req.Status, req.ExpectedVersion)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReportResponse(report)})
}

// UpdateUrgency PATCH /staff/reports/:id/urgency.
func (h *StaffReportsHandler) UpdateUrgency(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := reportIDParam(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUrgencyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	report, err := h.reports.UpdateUrgency(c.UserContext(), user, id, req.Urgency, req.ExpectedVersion)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReportResponse(report)})
}

// Assign POST /staff/reports/:id/assign.
func (h *StaffReportsHandler) Assign(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := reportIDParam(c)
	if err != nil {
		return err
	}
	var req dto.AssignReportRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	report, err := h.reports.AssignReport(c.UserContext(), user, id, req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReportResponse(report)})
}

// AddNote POST /staff/reports/:id/notes.
func (h *StaffReportsHandler) AddNote(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := reportIDParam(c)
	if err != nil {
		return err
	}
	var req dto.AddNoteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	note, err := h.reports.AddNote(c.UserContext(), user, id, req.Content)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewNoteResponse(note)})
}

// ListNotes GET /staff/reports/:id/notes.
func (h *StaffReportsHandler) ListNotes(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := reportIDParam(c)
	if err != nil {
		return err
	}
	pageNum, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	page, err := h.reports.ListNotes(c.UserContext(), user, id, pageNum, limit)
	if err != nil {
		return err
	}
	items := make([]dto.NoteResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewNoteResponse(&page.Items[i]))
	}
	return c.JSON(fiber.Map{"data": items, "meta": dto.NewPageMeta(page)})
}

// ListHistory GET /staff/reports/:id/history.
func (h *StaffReportsHandler) ListHistory(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := reportIDParam(c)
	if err != nil {
		return err
	}
	entries, err := h.reports.ListHistory(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewHistoryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseReportQuery(c *fiber.Ctx) (service.ReportQuery, error) {
	query := service.ReportQuery{
		Status:     c.Query("status"),
		IssueType:  c.Query("issue_type"),
		Urgency:    c.Query("urgency"),
		AssignedTo: c.Query("assigned_to"),
		Search:     c.Query("search"),
	}
	var err error
	if query.Page, err = queryInt(c, "page"); err != nil {
		return query, err
	}
	if query.Limit, err = queryInt(c, "limit"); err != nil {
		return query, err
	}
	if query.CreatedFrom, err = queryTime(c, "created_from", false); err != nil {
		return query, err
	}
	if query.CreatedTo, err = queryTime(c, "created_to", true); err != nil {
		return query, err
	}
	return query, nil
}
