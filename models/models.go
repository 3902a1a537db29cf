// ABOUTME: Data models for accreditation users, teams, history and promotions
// ABOUTME: JSON-serializable structures matching the upstream API and the portal's JSON routes

package models

import (
	"bytes"
	"encoding/json"
)

// ID accepts both JSON numbers and strings; the upstream API is not consistent.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// User is the accredited person behind a session
type User struct {
	ID            ID     `json:"id"`
	DNI           string `json:"dni"`
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Team          string `json:"team,omitempty"`
	TeamID        ID     `json:"team_id,omitempty"`
	Status        string `json:"status,omitempty"`
	Notifications *bool  `json:"notifications,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	TotalRaces    *int   `json:"total_races,omitempty"`
	Event         string `json:"event,omitempty"`
}

// NotificationsEnabled defaults to true when the API omits the flag
func (u *User) NotificationsEnabled() bool {
	return u.Notifications == nil || *u.Notifications
}

// TeamKeyID returns the identifier team data is cached under
func (u *User) TeamKeyID() string {
	if u.TeamID != "" {
		return u.TeamID.String()
	}
	return u.ID.String()
}

// UserStatus is the accreditation state shown on the dashboard
type UserStatus struct {
	Status    string  `json:"status"`
	Message   string  `json:"message"`
	NextEvent *string `json:"next_event"`
}

// TeamMember is a person listed in a team
type TeamMember struct {
	Name   string `json:"name"`
	Role   string `json:"role,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`
	Status string `json:"status,omitempty"`
}

// Team groups accredited members under a leader
type Team struct {
	Name    string       `json:"name"`
	Leader  *TeamMember  `json:"leader"`
	Members []TeamMember `json:"members"`
}

// HistoryEntry is one past race the user was accredited for
type HistoryEntry struct {
	Event    string          `json:"event,omitempty"`
	Circuit  string          `json:"circuit,omitempty"`
	Location string          `json:"location,omitempty"`
	Date     string          `json:"date,omitempty"`
	Status   string          `json:"status,omitempty"`
	Position json.RawMessage `json:"position,omitempty"`
	Points   json.RawMessage `json:"points,omitempty"`
	Notes    string          `json:"notes,omitempty"`
}

// Statistics summarizes attendance
type Statistics struct {
	TotalRaces            int     `json:"total_races"`
	AttendancePercentage  float64 `json:"attendance_percentage"`
	CurrentYearRaces      int     `json:"current_year_races"`
	CurrentYearAttendance int     `json:"current_year_attendance"`
}

// PromotionType enumerates offer kinds
type PromotionType string

const (
	PromotionDiscount PromotionType = "discount"
	PromotionBenefit  PromotionType = "benefit"
	PromotionSpecial  PromotionType = "special"
)

// Promotion is an offer shown to accredited users
type Promotion struct {
	ID          ID            `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Discount    string        `json:"discount"`
	ValidUntil  string        `json:"valid_until"`
	Type        PromotionType `json:"type"`
	Active      bool          `json:"active"`
}

// QRCode is the accreditation code rendered for the user
type QRCode struct {
	Data     string `json:"data"`
	ImageURL string `json:"image_url"`
	UserData *User  `json:"user_data,omitempty"`
}

// HistoryResponse is the body of GET /api/user/history
type HistoryResponse struct {
	History    []HistoryEntry `json:"history"`
	Statistics Statistics     `json:"statistics"`
}

// DashboardData is everything the dashboard page renders
type DashboardData struct {
	Status     UserStatus  `json:"status"`
	Promotions []Promotion `json:"promotions"`
}

// APIResponse is the portal's JSON envelope
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned by GET /api/health
type HealthResponse struct {
	Status   string         `json:"status"`
	Upstream string         `json:"upstream"`
	Cache    map[string]any `json:"cache"`
}
