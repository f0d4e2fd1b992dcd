// package formatter provides functions to export the result history to various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/soundlift/stemx/internal/models"
	"github.com/soundlift/stemx/internal/shared"
)

// Format names accepted by the CLI.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// Export renders entries in the named format.
func Export(entries []models.HistoryEntry, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ExportToJSON(entries)
	case FormatCSV:
		return ExportToCSV(entries)
	case FormatMarkdown:
		return ExportToMarkdown(entries)
	case FormatText, "":
		return ExportToText(entries)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// ExportToJSON marshals the history list as indented JSON.
func ExportToJSON(entries []models.HistoryEntry) ([]byte, error) {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV converts the history to CSV with columns: ID, Name, Key, Stems, Saved
func ExportToCSV(entries []models.HistoryEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Key", "Stems", "Saved"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range entries {
		record := []string{
			entry.ID,
			entry.Name,
			entry.Key,
			stemList(&entry),
			savedAt(&entry).Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts the history to a Markdown summary.
func ExportToMarkdown(entries []models.HistoryEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Separation History\n\n")
	buf.WriteString(fmt.Sprintf("**Entries**: %d\n\n", len(entries)))

	for i, entry := range entries {
		keyPart := ""
		if entry.Key != "" {
			keyPart = fmt.Sprintf(" (key: %s)", entry.Key)
		}
		buf.WriteString(fmt.Sprintf("%d. **%s**%s - %s - saved %s\n",
			i+1, entry.Name, keyPart, stemList(&entry),
			savedAt(&entry).Format("2006-01-02 15:04")))
	}

	return buf.Bytes(), nil
}

// ExportToText converts the history to a plain text listing.
func ExportToText(entries []models.HistoryEntry) ([]byte, error) {
	var buf bytes.Buffer

	if len(entries) == 0 {
		buf.WriteString("No separations yet.\n")
		return buf.Bytes(), nil
	}

	for i, entry := range entries {
		key := entry.Key
		if key == "" {
			key = "-"
		}
		buf.WriteString(fmt.Sprintf("%2d. %-30s key %-5s [%s] %s\n",
			i+1, entry.Name, key, stemList(&entry),
			savedAt(&entry).Format("2006-01-02 15:04")))
	}

	return buf.Bytes(), nil
}

// stemList renders the present stems in canonical order.
func stemList(entry *models.HistoryEntry) string {
	var names []string
	for _, stem := range entry.PresentStems() {
		names = append(names, string(stem))
	}
	return strings.Join(names, ", ")
}

func savedAt(entry *models.HistoryEntry) time.Time {
	return time.UnixMilli(entry.Timestamp)
}
