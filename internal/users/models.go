package users

import (
	"time"

	"github.com/google/uuid"
)

// AuthMethod is how an account authenticates
type AuthMethod string

const (
	AuthMethodLocal   AuthMethod = "local"
	AuthMethodDiscord AuthMethod = "discord"
)

// MaxLoginHistory bounds the per-user login ring buffer
const MaxLoginHistory = 50

// LoginEntry is one authentication attempt
type LoginEntry struct {
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
}

// User is a customer account together with its fraud aggregates
type User struct {
	ID            uuid.UUID    `json:"id"`
	Email         string       `json:"email"`
	Username      string       `json:"username"`
	AuthMethod    AuthMethod   `json:"auth_method"`
	PasswordHash  string       `json:"-"`
	RiskScore     int          `json:"risk_score"`
	TotalOrders   int          `json:"total_orders"`
	TotalSpent    float64      `json:"total_spent"`
	AvgOrderValue float64      `json:"avg_order_value"`
	LastOrderAt   *time.Time   `json:"last_order_at,omitempty"`
	FlagCount     int          `json:"flag_count"`
	IPAddresses   []string     `json:"ip_addresses"`
	LoginHistory  []LoginEntry `json:"login_history,omitempty"`
	IsBlocked     bool         `json:"is_blocked"`
	BlockedAt     *time.Time   `json:"blocked_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// HasIP reports whether ip was already seen for this user
func (u *User) HasIP(ip string) bool {
	for _, known := range u.IPAddresses {
		if known == ip {
			return true
		}
	}
	return false
}

// AddIP adds ip to the known set; empty and duplicate values are ignored
func (u *User) AddIP(ip string) {
	if ip == "" || u.HasIP(ip) {
		return
	}
	u.IPAddresses = append(u.IPAddresses, ip)
}

// RecordOrder folds a completed order into the running aggregates
func (u *User) RecordOrder(orderValue float64, ip string, at time.Time) {
	u.TotalOrders++
	u.TotalSpent += orderValue
	u.AvgOrderValue = u.TotalSpent / float64(u.TotalOrders)
	u.LastOrderAt = &at
	u.AddIP(ip)
}

// AppendLogin appends an entry, evicting the oldest beyond MaxLoginHistory
func (u *User) AppendLogin(entry LoginEntry) {
	u.LoginHistory = append(u.LoginHistory, entry)
	if over := len(u.LoginHistory) - MaxLoginHistory; over > 0 {
		u.LoginHistory = append([]LoginEntry(nil), u.LoginHistory[over:]...)
	}
	u.AddIP(entry.IP)
}

// Block marks the account blocked and counts the flag
func (u *User) Block(at time.Time) {
	u.IsBlocked = true
	u.BlockedAt = &at
	u.FlagCount++
}

// AccountAge returns how long ago the account was created
func (u *User) AccountAge(now time.Time) time.Duration {
	return now.Sub(u.CreatedAt)
}

// RegisterRequest creates a local account
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Username string `json:"username" validate:"notblank,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest authenticates a local account
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned after register/login
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
