package fraud

import (
	"fmt"
	"time"

	"github.com/armysmp/storefront/internal/users"
)

// Rule points and thresholds
const (
	PointsIPBlacklisted          = 35
	PointsNewAccountHighValue    = 25
	PointsRapidOrders            = 30
	PointsMultipleIPs            = 25
	PointsHighValueFirstPurchase = 15
	PointsUnusualOrderTime       = 10
	PointsAbnormalOrderValue     = 20

	MaxRiskScore = 100

	HighValueThreshold    = 2000.0
	NewAccountWindow      = 24 * time.Hour
	RapidOrderWindow      = 10 * time.Minute
	RapidOrderThreshold   = 3
	MultipleIPsThreshold  = 3
	AbnormalValueMultiple = 3.0
	UnusualHourStart      = 2
	UnusualHourEnd        = 5
	MediumRiskThreshold   = 30
	HighRiskThreshold     = 50
	CriticalRiskThreshold = 75
)

// signals is everything the rules look at, gathered before evaluation
type signals struct {
	order        OrderSnapshot
	user         *users.User
	ip           string
	now          time.Time
	blacklisted  bool
	recentOrders int
}

type rule func(s *signals) *RiskFlag

// rules run in this order; the flag list keeps it
var rules = []rule{
	ipBlacklistedRule,
	newAccountHighValueRule,
	rapidOrdersRule,
	multipleIPsRule,
	highValueFirstPurchaseRule,
	unusualOrderTimeRule,
	abnormalOrderValueRule,
}

func ipBlacklistedRule(s *signals) *RiskFlag {
	if !s.blacklisted {
		return nil
	}
	return &RiskFlag{
		Type:        FlagIPBlacklisted,
		Description: fmt.Sprintf("IP address %s is blacklisted", s.ip),
		Points:      PointsIPBlacklisted,
	}
}

func newAccountHighValueRule(s *signals) *RiskFlag {
	if s.user == nil || s.user.AccountAge(s.now) >= NewAccountWindow || s.order.Total <= HighValueThreshold {
		return nil
	}
	return &RiskFlag{
		Type:        FlagNewAccountHighValue,
		Description: fmt.Sprintf("Account created %.1f hours ago placing an order of %.2f", s.user.AccountAge(s.now).Hours(), s.order.Total),
		Points:      PointsNewAccountHighValue,
	}
}

func rapidOrdersRule(s *signals) *RiskFlag {
	if s.recentOrders < RapidOrderThreshold {
		return nil
	}
	return &RiskFlag{
		Type:        FlagRapidOrders,
		Description: fmt.Sprintf("%d orders placed in the last %d minutes", s.recentOrders, int(RapidOrderWindow.Minutes())),
		Points:      PointsRapidOrders,
	}
}

func multipleIPsRule(s *signals) *RiskFlag {
	if s.user == nil || s.ip == "" || s.user.HasIP(s.ip) || len(s.user.IPAddresses) < MultipleIPsThreshold {
		return nil
	}
	return &RiskFlag{
		Type:        FlagMultipleIPs,
		Description: fmt.Sprintf("New IP address; account already used %d different IPs", len(s.user.IPAddresses)),
		Points:      PointsMultipleIPs,
	}
}

func highValueFirstPurchaseRule(s *signals) *RiskFlag {
	if (s.user != nil && s.user.TotalOrders > 0) || s.order.Total <= HighValueThreshold {
		return nil
	}
	return &RiskFlag{
		Type:        FlagHighValueFirstPurchase,
		Description: fmt.Sprintf("First purchase with a high value of %.2f", s.order.Total),
		Points:      PointsHighValueFirstPurchase,
	}
}

func unusualOrderTimeRule(s *signals) *RiskFlag {
	hour := s.now.Hour()
	if hour < UnusualHourStart || hour > UnusualHourEnd {
		return nil
	}
	return &RiskFlag{
		Type:        FlagUnusualOrderTime,
		Description: fmt.Sprintf("Order placed at an unusual hour (%02d:00)", hour),
		Points:      PointsUnusualOrderTime,
	}
}

func abnormalOrderValueRule(s *signals) *RiskFlag {
	if s.user == nil || s.user.TotalOrders < 1 || s.order.Total <= AbnormalValueMultiple*s.user.AvgOrderValue {
		return nil
	}
	return &RiskFlag{
		Type:        FlagAbnormalOrderValue,
		Description: fmt.Sprintf("Order value %.2f is more than %.0fx the average of %.2f", s.order.Total, AbnormalValueMultiple, s.user.AvgOrderValue),
		Points:      PointsAbnormalOrderValue,
	}
}

// evaluate runs every rule and returns the triggered flags and the capped score
func evaluate(s *signals) ([]RiskFlag, int) {
	flags := make([]RiskFlag, 0, len(rules))
	score := 0
	for _, r := range rules {
		if f := r(s); f != nil {
			flags = append(flags, *f)
			score += f.Points
		}
	}
	if score > MaxRiskScore {
		score = MaxRiskScore
	}
	return flags, score
}

// LevelForScore maps a capped score to its tier
func LevelForScore(score int) RiskLevel {
	switch {
	case score < MediumRiskThreshold:
		return RiskLevelLow
	case score < HighRiskThreshold:
		return RiskLevelMedium
	case score < CriticalRiskThreshold:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}
