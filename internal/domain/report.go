package domain

import (
	"fmt"
	"time"
)

// Collection names in the record store.
const (
	CollectionReports = "reports"
	CollectionUsers   = "users"
	CollectionVotes   = "votes"
)

// Report lifetimes.
const (
	ReportTTL       = 4 * time.Hour
	VerifiedTTL     = 5 * time.Hour
	DefaultSeverity = "MEDIUM"
	DefaultDepth    = "UNKNOWN"
)

// Report is a user-submitted waterlogging hazard at a location.
type Report struct {
	ID          int64      `json:"id"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Severity    string     `json:"severity"`
	Depth       string     `json:"depth"`
	PhotoURL    *string    `json:"photoUrl"`
	Description string     `json:"description"`
	PlaceName   string     `json:"placeName,omitempty"`
	UserID      string     `json:"userId"`
	Votes       int        `json:"votes"`
	CreatedAt   time.Time  `json:"createdAt"`
	VerifiedAt  *time.Time `json:"verifiedAt,omitempty"`
	ExpiresAt   time.Time  `json:"expiresAt"`
}

// Expired reports whether the report's validity window has passed at now.
func (r Report) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// NearbyReport is a report annotated with its distance from a query point.
// Distance is omitted when the query had no reference point.
type NearbyReport struct {
	Report
	Distance *int `json:"distance,omitempty"`
}

// Vote is one user's current vote on one report.
type Vote struct {
	Key      string `json:"key"`
	Vote     int    `json:"vote"`
	UserID   string `json:"userId"`
	ReportID int64  `json:"reportId"`
}

// VoteKey returns the composite key that makes a vote unique per (user, report).
func VoteKey(userID string, reportID int64) string {
	return fmt.Sprintf("%s_%d", userID, reportID)
}

// VoteResult is the outcome of a vote on a report.
type VoteResult struct {
	ReportID int64 `json:"reportId"`
	Votes    int   `json:"votes"`
	UserVote int   `json:"userVote"`
}

// VerifyResult is the outcome of verifying a report.
type VerifyResult struct {
	ReportID   int64     `json:"reportId"`
	Verified   bool      `json:"verified"`
	VerifiedAt time.Time `json:"verifiedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// User is a registered device identity.
type User struct {
	UserID    string    `json:"userId"`
	DeviceID  string    `json:"deviceId"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	FCMToken  string    `json:"fcmToken"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile is the public view of a user with their report count.
type Profile struct {
	UserID       string    `json:"userId"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	ReportsCount int       `json:"reportsCount"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// Hazard is a nearby report as seen from an alert query point.
type Hazard struct {
	ID        int64   `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Severity  string  `json:"severity"`
	Distance  int     `json:"distance"`
	Direction string  `json:"direction"`
}

// AlertResult summarises hazards around a point.
type AlertResult struct {
	HasHazards   bool     `json:"hasHazards"`
	Hazards      []Hazard `json:"hazards"`
	AlertMessage *string  `json:"alertMessage"`
}

// AreaCount is a coordinate bucket with its report count.
type AreaCount struct {
	Name        string `json:"name"`
	ReportCount int    `json:"reportCount"`
}

// Stats is an aggregate view over the report and user stores.
type Stats struct {
	TotalReports  int         `json:"totalReports"`
	ActiveReports int         `json:"activeReports"`
	TotalUsers    int         `json:"totalUsers"`
	ReportsToday  int         `json:"reportsToday"`
	TopAreas      []AreaCount `json:"topAreas"`
}
