package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	plagerrors "github.com/standardbeagle/plagscan/internal/errors"
)

// Roster-ingestion safety limits, mirrored from the reference roster
// importer: a published sheet is untrusted input and gets the same
// bounds an uploaded archive would.
const (
	MaxRosterRows  = 100
	MinRosterRows  = 2
	sheetTimeout   = 15 * time.Second
	maxCSVBytes    = 2 * 1024 * 1024
)

// StudentRepo is one validated roster row: a student identifier paired with
// the remote repository URL to fetch their submission from.
type StudentRepo struct {
	Name      string
	URN       string
	SourceURL string
}

var sheetIDPattern = regexp.MustCompile(`docs\.google\.com/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// ParseSheetURL extracts the Sheet ID from any of the URL variants Google
// Sheets produces (/edit, /gviz, or the bare share link).
func ParseSheetURL(url string) (string, error) {
	match := sheetIDPattern.FindStringSubmatch(strings.TrimSpace(url))
	if match == nil {
		return "", plagerrors.NewInputError(fmt.Sprintf(
			"invalid Google Sheets URL %q; expected https://docs.google.com/spreadsheets/d/SHEET_ID/...", url))
	}
	return match[1], nil
}

func csvExportURL(sheetID string) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", sheetID)
}

// DownloadSheetCSV fetches a public Google Sheet's CSV export. A sheet that
// isn't shared "anyone with the link can view" comes back as an HTML login
// page rather than an HTTP error, so the content-type is checked explicitly.
func DownloadSheetCSV(ctx context.Context, sheetURL string) (string, error) {
	sheetID, err := ParseSheetURL(sheetURL)
	if err != nil {
		return "", err
	}

	client := &http.Client{Timeout: sheetTimeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, csvExportURL(sheetID), nil)
	if err != nil {
		return "", plagerrors.NewExternalFailure("sheet", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := client.Do(req)
	if err != nil {
		return "", plagerrors.NewExternalFailure("sheet", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return "", plagerrors.NewInputError(fmt.Sprintf("Google Sheet not found: %s", sheetID))
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", plagerrors.NewInputError(
			"the Google Sheet is not publicly accessible; set sharing to \"anyone with the link can view\"")
	default:
		if resp.StatusCode != http.StatusOK {
			return "", plagerrors.NewExternalFailure("sheet",
				fmt.Errorf("unexpected status %d", resp.StatusCode))
		}
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return "", plagerrors.NewInputError(
			"Google returned an HTML page instead of CSV; the sheet is likely not shared publicly")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCSVBytes+1))
	if err != nil {
		return "", plagerrors.NewExternalFailure("sheet", err)
	}
	if len(body) > maxCSVBytes {
		return "", plagerrors.NewInputError(fmt.Sprintf("CSV exceeds %d byte limit", maxCSVBytes))
	}
	return strings.TrimPrefix(string(body), "﻿"), nil
}

var githubURLPattern = regexp.MustCompile(`^https?://github\.com/[a-zA-Z0-9._-]+/[a-zA-Z0-9._-]+`)

var requiredRosterColumns = []string{"name", "urn", "github_url"}

// ParseRosterCSV validates headers and rows against the roster schema,
// returning the valid repos plus a human-readable warning per skipped row
// (missing fields, malformed URL, duplicate URN/URL, row-count overrun).
func ParseRosterCSV(csvText string) ([]StudentRepo, []string, error) {
	reader := csv.NewReader(strings.NewReader(csvText))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, plagerrors.NewInputError("CSV is empty or has no header row")
	}
	colIndex := make(map[string]int, len(header))
	for i, h := range header {
		colIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range requiredRosterColumns {
		if _, ok := colIndex[col]; !ok {
			return nil, nil, plagerrors.NewInputError(
				fmt.Sprintf("CSV is missing required column %q; required: name, urn, github_url", col))
		}
	}

	var repos []StudentRepo
	var warnings []string
	seenURN := map[string]string{}
	seenURL := map[string]string{}

	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("row %d: %v — skipped", rowNum, err))
			continue
		}

		name := field(record, colIndex, "name")
		urn := field(record, colIndex, "urn")
		url := field(record, colIndex, "github_url")

		if name == "" && urn == "" && url == "" {
			continue
		}
		if name == "" {
			warnings = append(warnings, fmt.Sprintf("row %d: missing name — skipped", rowNum))
			continue
		}
		if urn == "" {
			warnings = append(warnings, fmt.Sprintf("row %d (%s): missing urn — skipped", rowNum, name))
			continue
		}
		if url == "" {
			warnings = append(warnings, fmt.Sprintf("row %d (%s): missing github_url — skipped", rowNum, name))
			continue
		}
		if !githubURLPattern.MatchString(url) {
			warnings = append(warnings, fmt.Sprintf("row %d (%s): invalid github_url %q — skipped", rowNum, name, url))
			continue
		}

		urnKey := strings.ToLower(urn)
		if first, dup := seenURN[urnKey]; dup {
			warnings = append(warnings, fmt.Sprintf("row %d (%s): duplicate urn %q (first seen for %s) — skipped", rowNum, name, urn, first))
			continue
		}
		urlKey := strings.ToLower(strings.TrimSuffix(url, "/"))
		if _, dup := seenURL[urlKey]; dup {
			warnings = append(warnings, fmt.Sprintf("row %d (%s): duplicate github_url — skipped", rowNum, name))
			continue
		}
		seenURN[urnKey] = name
		seenURL[urlKey] = name

		repos = append(repos, StudentRepo{Name: name, URN: urn, SourceURL: url})
		if len(repos) >= MaxRosterRows {
			warnings = append(warnings, fmt.Sprintf("reached maximum of %d repositories; remaining rows ignored", MaxRosterRows))
			break
		}
	}

	if len(repos) == 0 {
		return nil, warnings, plagerrors.NewInputError(
			"no valid repository entries found; sheet needs columns name, urn, github_url with at least 2 valid rows")
	}
	if len(repos) < MinRosterRows {
		return nil, warnings, plagerrors.NewInputError(
			fmt.Sprintf("at least %d valid repositories are required, found %d", MinRosterRows, len(repos)))
	}
	return repos, warnings, nil
}

func field(record []string, colIndex map[string]int, name string) string {
	i, ok := colIndex[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
