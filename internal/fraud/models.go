package fraud

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel is the tier derived from a capped risk score
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// FlagType is one of the fixed fraud signals
type FlagType string

const (
	FlagIPBlacklisted          FlagType = "ip_blacklisted"
	FlagNewAccountHighValue    FlagType = "new_account_high_value"
	FlagRapidOrders            FlagType = "rapid_orders"
	FlagMultipleIPs            FlagType = "multiple_ips"
	FlagHighValueFirstPurchase FlagType = "high_value_first_purchase"
	FlagUnusualOrderTime       FlagType = "unusual_order_time"
	FlagAbnormalOrderValue     FlagType = "abnormal_order_value"
)

// AlertStatus is the review state of a fraud alert
type AlertStatus string

const (
	AlertStatusPending   AlertStatus = "pending"
	AlertStatusReviewed  AlertStatus = "reviewed"
	AlertStatusApproved  AlertStatus = "approved"
	AlertStatusDismissed AlertStatus = "dismissed"
	AlertStatusBlocked   AlertStatus = "blocked"
)

// ActionTaken records what staff did about an alert
type ActionTaken string

const (
	ActionNone     ActionTaken = "none"
	ActionWarned   ActionTaken = "warned"
	ActionBlocked  ActionTaken = "blocked"
	ActionRefunded ActionTaken = "refunded"
)

// RiskFlag is a single triggered signal
type RiskFlag struct {
	Type        FlagType `json:"type"`
	Description string   `json:"description"`
	Points      int      `json:"points"`
}

// Geolocation is the coarse location reported by the edge proxy
type Geolocation struct {
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
}

// OrderSnapshot is the part of an order the engine inspects
type OrderSnapshot struct {
	Total   float64
	Email   string
	Country string
	City    string
}

// RiskAssessment is the result of scoring one order
type RiskAssessment struct {
	RiskScore   int         `json:"risk_score"`
	RiskLevel   RiskLevel   `json:"risk_level"`
	Flags       []RiskFlag  `json:"flags"`
	ShouldFlag  bool        `json:"should_flag"`
	ShouldBlock bool        `json:"should_block"`
	Timestamp   time.Time   `json:"timestamp"`
	IPAddress   string      `json:"ip_address"`
	UserAgent   string      `json:"user_agent"`
	OrderValue  float64     `json:"order_value"`
	Email       string      `json:"email"`
	Geolocation Geolocation `json:"geolocation"`
}

// FlagTypes returns the triggered flag names in evaluation order
func (a *RiskAssessment) FlagTypes() []string {
	out := make([]string, len(a.Flags))
	for i, f := range a.Flags {
		out[i] = string(f.Type)
	}
	return out
}

// FraudAlert is a persisted, reviewable record of a flagged order
type FraudAlert struct {
	ID                uuid.UUID   `json:"id"`
	OrderID           *uuid.UUID  `json:"order_id,omitempty"`
	OrderNumber       string      `json:"order_number"`
	UserEmail         string      `json:"user_email"`
	MinecraftUsername string      `json:"minecraft_username"`
	RiskScore         int         `json:"risk_score"`
	RiskLevel         RiskLevel   `json:"risk_level"`
	Flags             []RiskFlag  `json:"flags"`
	OrderValue        float64     `json:"order_value"`
	IPAddress         string      `json:"ip_address"`
	UserAgent         string      `json:"user_agent"`
	Geolocation       Geolocation `json:"geolocation"`
	Status            AlertStatus `json:"status"`
	ReviewedBy        string      `json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time  `json:"reviewed_at,omitempty"`
	Notes             string      `json:"notes,omitempty"`
	ActionTaken       ActionTaken `json:"action_taken"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// AlertFilter narrows alert listings; empty fields match everything
type AlertFilter struct {
	Status    AlertStatus `form:"status" json:"status" validate:"omitempty,oneof=pending reviewed approved dismissed blocked"`
	RiskLevel RiskLevel   `form:"risk_level" json:"risk_level" validate:"omitempty,oneof=low medium high critical"`
}

// ReviewAlertRequest is a staff decision on an alert
type ReviewAlertRequest struct {
	Status      AlertStatus `json:"status" validate:"required,oneof=pending reviewed approved dismissed blocked"`
	Notes       string      `json:"notes" validate:"max=2000"`
	ActionTaken ActionTaken `json:"action_taken" validate:"omitempty,oneof=none warned blocked refunded"`
}

// AlertReview is what the repository writes for a review
type AlertReview struct {
	Status      AlertStatus
	ReviewedBy  string
	ReviewedAt  time.Time
	Notes       string
	ActionTaken ActionTaken
}

// FraudStats summarizes the alert queue for the dashboard
type FraudStats struct {
	TotalAlerts         int64 `json:"total_alerts"`
	PendingAlerts       int64 `json:"pending_alerts"`
	CriticalPending     int64 `json:"critical_pending"`
	AlertsToday         int64 `json:"alerts_today"`
	AlertsThisWeek      int64 `json:"alerts_this_week"`
	ResolvedToday       int64 `json:"resolved_today"`
	BlockedUsers        int64 `json:"blocked_users"`
	BlacklistedIPsCount int64 `json:"blacklisted_ips"`
}

// OrderSummary is the slice of an order shown next to fraud data
type OrderSummary struct {
	ID                uuid.UUID `json:"id"`
	OrderNumber       string    `json:"order_number"`
	MinecraftUsername string    `json:"minecraft_username"`
	Email             string    `json:"email,omitempty"`
	Total             float64   `json:"total"`
	Status            string    `json:"status"`
	PaymentStatus     string    `json:"payment_status"`
	RiskScore         *int      `json:"risk_score,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// UserRiskSummary is the fraud view of an account
type UserRiskSummary struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	RiskScore     int        `json:"risk_score"`
	TotalOrders   int        `json:"total_orders"`
	TotalSpent    float64    `json:"total_spent"`
	AvgOrderValue float64    `json:"avg_order_value"`
	LastOrderAt   *time.Time `json:"last_order_at,omitempty"`
	FlagCount     int        `json:"flag_count"`
	IPAddresses   []string   `json:"ip_addresses"`
	IsBlocked     bool       `json:"is_blocked"`
	BlockedAt     *time.Time `json:"blocked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// UserRiskProfile is the admin drill-down for one account
type UserRiskProfile struct {
	User         *UserRiskSummary `json:"user"`
	RecentAlerts []*FraudAlert    `json:"recent_alerts"`
	RecentOrders []*OrderSummary  `json:"recent_orders"`
}

// AlertDetail is an alert with its order and account context
type AlertDetail struct {
	Alert *FraudAlert      `json:"alert"`
	Order *OrderSummary    `json:"order,omitempty"`
	User  *UserRiskSummary `json:"user,omitempty"`
}
