package admin

import (
	"time"

	"github.com/armysmp/storefront/internal/fraud"
	"github.com/armysmp/storefront/internal/orders"
)

// LoginRequest is a staff sign-in attempt
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
	OTP      string `json:"otp" validate:"omitempty,len=6,numeric"`
}

// LoginResponse carries the staff token
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Dashboard is the back-office overview
type Dashboard struct {
	Orders *orders.DashboardStats `json:"orders"`
	Fraud  *fraud.FraudStats      `json:"fraud"`
}
