package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woreda-portal/compliance-service/internal/domain"
)

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{{"migrate"}, {"staff", "create"}, {"reports", "list"}} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, strings.Join(path, " "))
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}

	for _, flag := range []string{"email", "name", "role", "status", "password"} {
		assert.NotNil(t, staffCreateCmd.Flags().Lookup(flag), flag)
	}
	for _, flag := range []string{"status", "issue-type", "urgency", "search", "page", "limit"} {
		assert.NotNil(t, reportsListCmd.Flags().Lookup(flag), flag)
	}
}

func TestWriteReportTable(t *testing.T) {
	created := time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)
	page := domain.NewPage([]domain.ComplianceReport{
		{ID: 401, Status: domain.ReportStatusNew, Urgency: domain.UrgencyHigh, IssueType: domain.IssueTypeCorruption, Summary: "Bribe at permit desk", CreatedAt: created},
	}, 21, 1, 20)

	var buf bytes.Buffer
	require.NoError(t, writeReportTable(&buf, page))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "401")
	assert.Contains(t, lines[1], "2025-11-03 09:30")
	assert.Contains(t, lines[1], "Bribe at permit desk")
	assert.Equal(t, "page 1 of 2 (21 reports)", lines[2])
}
