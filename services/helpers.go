package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/tourney-engine/models"
)

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

func validateTournamentDates(reg, start, end time.Time) error {
	if reg.IsZero() || start.IsZero() || end.IsZero() {
		return ErrTournamentDatesRequired
	}
	if reg.After(start) {
		return fmt.Errorf("%w: registration date (%s) cannot be after start date (%s)", ErrTournamentInvalidRegDate, reg.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if !start.Before(end) {
		return fmt.Errorf("%w: start date (%s) must be before end date (%s)", ErrTournamentInvalidDateRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

// displayNameForRegistration returns the name a bracket slot or standing row
// should show for a registration, preferring the team name over the
// individual's stored display name.
func displayNameForRegistration(r *models.Registration) string {
	if r == nil {
		return "Unknown"
	}
	if r.TeamName != nil && *r.TeamName != "" {
		return *r.TeamName
	}
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return fmt.Sprintf("Registration %d", r.ID)
}

// GetExtensionFromContentType maps an uploaded file's content type to a
// storage key extension, used for tournament logos and prize tax documents.
func GetExtensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	case "application/pdf":
		return ".pdf", nil
	default:
		parts := strings.Split(contentType, "/")
		if len(parts) == 2 && strings.HasPrefix(parts[0], "image") && parts[1] != "" {
			ext := "." + strings.Split(parts[1], "+")[0]
			return ext, nil
		}
		return "", fmt.Errorf("could not determine file extension from content type: '%s'", contentType)
	}
}
