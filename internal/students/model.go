package students

import (
	"strings"
	"time"
)

// NoApplication is the profile view value for students without any visa application.
const NoApplication = "No Application"

// Student is a prospective student keyed by their messaging identity.
type Student struct {
	ID          int64          `json:"id"`
	ExternalID  string         `json:"external_id"`
	Channel     string         `json:"channel"`
	Name        string         `json:"name,omitempty"`
	Email       string         `json:"email,omitempty"`
	ProfileData map[string]any `json:"profile_data"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ProfileView joins a student with their current application. The current
// application is always the most recently created one, terminal or not.
type ProfileView struct {
	StudentID  int64          `json:"student_id"`
	Identity   string         `json:"identity"`
	Name       string         `json:"name,omitempty"`
	Email      string         `json:"email,omitempty"`
	Profile    map[string]any `json:"profile_data"`
	Country    string         `json:"country,omitempty"`
	Status     string         `json:"status"`
	HasLead    bool           `json:"has_lead"`
	LeadID     int64          `json:"lead_id,omitempty"`
	CreatedNew bool           `json:"-"`
}

// CurrentApplication is the slice of a visa application the profile view needs.
type CurrentApplication struct {
	ID      int64
	Country string
	Status  string
}

// Patch describes a profile update. Nil fields are left untouched.
type Patch struct {
	Name    *string
	Email   *string
	Profile map[string]any
}

// IsEmpty reports whether applying the patch would change nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && len(p.Profile) == 0
}

// NewProfileView builds the view for a student and optional current application.
func NewProfileView(s *Student, current *CurrentApplication) ProfileView {
	view := ProfileView{
		StudentID: s.ID,
		Identity:  s.ExternalID,
		Name:      s.Name,
		Email:     s.Email,
		Profile:   s.ProfileData,
		Status:    NoApplication,
	}
	if view.Profile == nil {
		view.Profile = map[string]any{}
	}
	if current != nil {
		view.HasLead = true
		view.LeadID = current.ID
		view.Country = current.Country
		view.Status = current.Status
	}
	return view
}

func normalizeIdentity(identity string) string {
	return strings.TrimSpace(identity)
}
