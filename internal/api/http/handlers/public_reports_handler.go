package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/woreda-portal/compliance-service/internal/api/dto"
	"github.com/woreda-portal/compliance-service/internal/service"
)

// PublicReportsHandler serves the anonymous intake form.
type PublicReportsHandler struct {
	reports *service.ReportService
}

// NewPublicReportsHandler constructs handler.
func NewPublicReportsHandler(reports *service.ReportService) *PublicReportsHandler {
	return &PublicReportsHandler{reports: reports}
}

// Submit POST /public/reports.
func (h *PublicReportsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitReportRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	report, err := h.reports.SubmitReport(c.UserContext(), service.SubmitReportInput{
		IssueType:   req.IssueType,
		Urgency:     req.Urgency,
		Summary:     req.Summary,
		FullDetails: req.FullDetails,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.SubmitReportResponse{
		ID:        report.ID,
		Status:    report.Status,
		CreatedAt: report.CreatedAt,
	}})
}
