package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"designcal/internal/layout"
)

// ValidateAppointment checks a client-submitted appointment. It is the
// upstream guard that keeps malformed times away from the lane layout.
func ValidateAppointment(a Appointment) error {
	title := strings.TrimSpace(a.Title)
	if len(title) == 0 {
		return errors.New("title is required")
	}
	if len(title) > 100 {
		return errors.New("title is too long (100 characters tops)")
	}

	if !a.Kind.Known() {
		return fmt.Errorf("unknown kind %q", a.Kind)
	}

	if _, err := time.Parse(DateLayout, a.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %q", a.Date)
	}

	if err := layout.ValidateEvent(a.LayoutEvent()); err != nil {
		return err
	}

	return nil
}
