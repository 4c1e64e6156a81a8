package errors

import (
	"context"
	"errors"
	"net"
	"strings"
)

type Category string

const (
	CategoryValidation Category = "validation"
	CategoryDomain     Category = "domain"
	CategoryNetwork    Category = "network"
	CategoryTechnical  Category = "technical"
	CategoryUnknown    Category = "unknown"
)

// Classification is the retry policy shared by read paths and the offline queue.
type Classification struct {
	Category  Category
	Code      string
	Retryable bool
}

var codeCategories = map[string]Category{
	CodeValidation:            CategoryValidation,
	CodeInvalidInput:          CategoryValidation,
	CodeStaffNotAssigned:      CategoryDomain,
	CodeNoSchedule:            CategoryDomain,
	CodeScheduleConflict:      CategoryDomain,
	CodeServiceNotPerformed:   CategoryDomain,
	CodeConflict:              CategoryDomain,
	CodeNotFound:              CategoryDomain,
	CodeRateLimited:           CategoryDomain,
	CodeReservationInProgress: CategoryDomain,
	CodeNetwork:               CategoryNetwork,
	CodeTimeout:               CategoryNetwork,
	CodeUnavailable:           CategoryNetwork,
	CodeTechnical:             CategoryTechnical,
	CodeInternal:              CategoryTechnical,
	CodeReservedNotConfirmed:  CategoryTechnical,
	CodeUnknown:               CategoryUnknown,
}

// Text fallbacks for remotes that only return a message. Kept for
// compatibility with older oracle deployments; structured codes win.
var (
	networkPatterns = []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"i/o timeout",
		"broken pipe",
		"deadline exceeded",
		"timeout",
		"unexpected eof",
	}
	// domainPatterns are checked in order; the first match wins.
	domainPatterns = []struct {
		pattern string
		code    string
	}{
		{"not assigned", CodeStaffNotAssigned},
		{"not linked to branch", CodeStaffNotAssigned},
		{"no schedule", CodeNoSchedule},
		{"does not work", CodeNoSchedule},
		{"conflict", CodeScheduleConflict},
		{"already booked", CodeScheduleConflict},
		{"does not perform", CodeServiceNotPerformed},
	}
)

func Classify(err error) Classification {
	if err == nil {
		return Classification{Category: CategoryUnknown}
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if category, ok := codeCategories[appErr.Code]; ok {
			return Classification{
				Category:  category,
				Code:      appErr.Code,
				Retryable: category == CategoryNetwork,
			}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Classification{Category: CategoryNetwork, Code: CodeTimeout, Retryable: true}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Classification{Category: CategoryNetwork, Code: CodeNetwork, Retryable: true}
	}

	return classifyText(err.Error())
}

// ClassifyCode maps a remote error code to an AppError code, tolerating
// lower-case and dashed spellings.
func ClassifyCode(code string) (string, bool) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), "-", "_"))
	if _, ok := codeCategories[normalized]; ok {
		return normalized, true
	}
	return "", false
}

func classifyText(message string) Classification {
	lowered := strings.ToLower(message)
	for _, pattern := range networkPatterns {
		if strings.Contains(lowered, pattern) {
			return Classification{Category: CategoryNetwork, Code: CodeNetwork, Retryable: true}
		}
	}
	for _, p := range domainPatterns {
		if strings.Contains(lowered, p.pattern) {
			return Classification{Category: CategoryDomain, Code: p.code}
		}
	}
	return Classification{Category: CategoryUnknown, Code: CodeUnknown}
}

func IsNetwork(err error) bool {
	return Classify(err).Category == CategoryNetwork
}

var userMessages = map[string]string{
	CodeStaffNotAssigned:      "This master is not working at the selected branch on that day.",
	CodeNoSchedule:            "There is no schedule for the selected date.",
	CodeScheduleConflict:      "The selected time is no longer available.",
	CodeServiceNotPerformed:   "This master does not perform the selected service.",
	CodeReservationInProgress: "Your reservation is already being processed.",
	CodeReservedNotConfirmed:  "Your slot is reserved, but confirmation is pending. The business will contact you.",
}

// UserMessage returns the text shown to the end user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	c := Classify(err)
	if msg, ok := userMessages[c.Code]; ok {
		return msg
	}
	switch c.Category {
	case CategoryValidation, CategoryDomain:
		if IsAppError(err) {
			return AsAppError(err).Message
		}
		return "This time cannot be booked. Please choose another."
	case CategoryNetwork:
		return "No connection. Check your network and try again."
	default:
		return "Something went wrong. Please try again later."
	}
}
