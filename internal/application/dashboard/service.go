package dashboard

import (
	"context"
	"time"

	"approvalflow-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service produces the dashboard summary for one organization.
type Service struct {
	DB *gorm.DB
}

// Counts are live numbers from the database.
type Counts struct {
	Members            int64 `json:"members"`
	Workflows          int64 `json:"workflows"`
	ActiveWorkflows    int64 `json:"active_workflows"`
	PendingInvitations int64 `json:"pending_invitations"`
}

// Analytics is display-only placeholder data. No execution engine exists
// yet, so there is nothing real to aggregate.
type Analytics struct {
	ApprovalRate    float64        `json:"approval_rate"`
	AvgApprovalTime string         `json:"avg_approval_time"`
	MonthlyTrend    []MonthlyPoint `json:"monthly_trend"`
	Placeholder     bool           `json:"placeholder"`
}

type MonthlyPoint struct {
	Month    string `json:"month"`
	Approved int    `json:"approved"`
	Rejected int    `json:"rejected"`
}

// Summary is the dashboard payload.
type Summary struct {
	Counts    Counts    `json:"counts"`
	Analytics Analytics `json:"analytics"`
}

// Summarize counts members, workflows and pending invitations, and attaches
// the canned analytics block.
func (s *Service) Summarize(ctx context.Context, orgID uuid.UUID) (*Summary, error) {
	var out Summary

	if err := s.DB.WithContext(ctx).Model(&domain.User{}).
		Where("organization_id = ?", orgID).
		Count(&out.Counts.Members).Error; err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&domain.Workflow{}).
		Where("organization_id = ?", orgID).
		Count(&out.Counts.Workflows).Error; err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&domain.Workflow{}).
		Where("organization_id = ? AND status = ?", orgID, domain.WorkflowStatusActive).
		Count(&out.Counts.ActiveWorkflows).Error; err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&domain.Invitation{}).
		Where("organization_id = ? AND status = ? AND expires_at > ?", orgID, domain.InviteStatusPending, time.Now()).
		Count(&out.Counts.PendingInvitations).Error; err != nil {
		return nil, err
	}

	out.Analytics = placeholderAnalytics()
	return &out, nil
}

func placeholderAnalytics() Analytics {
	return Analytics{
		ApprovalRate:    94.2,
		AvgApprovalTime: "1.8 days",
		MonthlyTrend: []MonthlyPoint{
			{Month: "Apr", Approved: 38, Rejected: 4},
			{Month: "May", Approved: 45, Rejected: 2},
			{Month: "Jun", Approved: 52, Rejected: 3},
		},
		Placeholder: true,
	}
}
