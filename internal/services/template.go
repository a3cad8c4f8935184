package services

import (
	"regexp"
	"strings"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// Personalize substitutes {{key}} placeholders in the body with recipient
// data. Lookup order is custom data, then name and email. Unknown keys
// render as an empty string rather than leaking the placeholder.
func Personalize(body string, recipient *domain.Recipient) string {
	return placeholderPattern.ReplaceAllStringFunc(body, func(match string) string {
		key := strings.TrimSpace(strings.Trim(match, "{}"))
		if recipient.CustomData != nil {
			if v, ok := recipient.CustomData[key]; ok {
				return v
			}
		}
		switch key {
		case "name":
			return recipient.Name
		case "email":
			return recipient.Email
		}
		return ""
	})
}
