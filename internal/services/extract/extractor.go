package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
)

var (
	emailPattern     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	emailScanPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// ValidEmail reports whether s as a whole is an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// FromFile extracts recipients from an uploaded file, dispatching on the
// extension. Tabular formats map columns to recipient fields; anything
// text-like is scanned for email-shaped tokens.
func FromFile(filename string, r io.Reader) ([]domain.Recipient, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return fromCSV(r)
	case ".xlsx", ".xls":
		return fromXLSX(r)
	case ".txt", ".text", ".doc", ".docx":
		return fromText(r)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

func fromCSV(r io.Reader) ([]domain.Recipient, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return fromRows(rows)
}

func fromXLSX(r io.Reader) ([]domain.Recipient, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.ErrNoValidRecipients
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return fromRows(rows)
}

// fromRows maps tabular data onto recipients. A header row naming an email
// column drives the mapping; remaining columns become custom data. Without
// a usable header every cell is scanned for email-shaped values.
func fromRows(rows [][]string) ([]domain.Recipient, error) {
	if len(rows) == 0 {
		return nil, domain.ErrNoValidRecipients
	}

	emailCol, nameCol, customCols := mapHeader(rows[0])
	if emailCol < 0 {
		return scanCells(rows)
	}

	seen := make(map[string]bool)
	recipients := make([]domain.Recipient, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if emailCol >= len(row) {
			continue
		}
		email := strings.ToLower(strings.TrimSpace(row[emailCol]))
		if !ValidEmail(email) || seen[email] {
			continue
		}
		seen[email] = true

		// Contacts without a usable name still need one for {{name}}
		// interpolation, so they fall back to a generic salutation.
		recipient := domain.Recipient{Email: email, Name: "Customer", Status: domain.RecipientPending}
		if nameCol >= 0 && nameCol < len(row) {
			if name := strings.TrimSpace(row[nameCol]); name != "" {
				recipient.Name = name
			}
		}
		for col, key := range customCols {
			if col < len(row) && strings.TrimSpace(row[col]) != "" {
				if recipient.CustomData == nil {
					recipient.CustomData = make(map[string]string)
				}
				recipient.CustomData[key] = strings.TrimSpace(row[col])
			}
		}
		recipients = append(recipients, recipient)
	}

	if len(recipients) == 0 {
		return nil, domain.ErrNoValidRecipients
	}
	return recipients, nil
}

// mapHeader locates the email and name columns and collects the rest as
// custom data keys. Returns emailCol -1 when no email column exists.
func mapHeader(header []string) (emailCol, nameCol int, customCols map[int]string) {
	emailCol, nameCol = -1, -1
	customCols = make(map[int]string)

	for i, cell := range header {
		key := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case key == "email" || key == "e-mail" || key == "email address":
			if emailCol < 0 {
				emailCol = i
			}
		case key == "name" || key == "full name" || key == "firstname" || key == "first name":
			if nameCol < 0 {
				nameCol = i
			}
		case key != "":
			customCols[i] = strings.TrimSpace(cell)
		}
	}
	return emailCol, nameCol, customCols
}

// scanCells falls back to treating every cell as free text.
func scanCells(rows [][]string) ([]domain.Recipient, error) {
	var sb strings.Builder
	for _, row := range rows {
		for _, cell := range row {
			sb.WriteString(cell)
			sb.WriteString(" ")
		}
	}
	return recipientsFromText(sb.String())
}

func fromText(r io.Reader) ([]domain.Recipient, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return recipientsFromText(string(data))
}

// recipientsFromText pulls every email-shaped token out of free text.
// Extracted contacts get positional placeholder names.
func recipientsFromText(text string) ([]domain.Recipient, error) {
	matches := emailScanPattern.FindAllString(text, -1)

	seen := make(map[string]bool)
	recipients := make([]domain.Recipient, 0, len(matches))
	for _, match := range matches {
		email := strings.ToLower(match)
		if seen[email] {
			continue
		}
		seen[email] = true
		recipients = append(recipients, domain.Recipient{
			Email:  email,
			Name:   fmt.Sprintf("Customer %d", len(recipients)+1),
			Status: domain.RecipientPending,
		})
	}

	if len(recipients) == 0 {
		return nil, domain.ErrNoValidRecipients
	}
	return recipients, nil
}
