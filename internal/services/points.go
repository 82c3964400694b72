package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/codyseavey/cardcatalog/internal/config"
	"github.com/codyseavey/cardcatalog/internal/models"
)

// PointsStore is the slice of the store the points ledger needs.
type PointsStore interface {
	AdjustUserPoints(ctx context.Context, userID uint, delta int) (int, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// PointsService awards and deducts contributor points. Points only gate
// auto-approval; they never affect resolution.
type PointsService struct {
	perApprovedCard   int
	perRejectedBundle int
	autoApproveMin    int
}

func NewPointsService(points config.PointsConfig, review config.ReviewConfig) *PointsService {
	return &PointsService{
		perApprovedCard:   points.PerApprovedCard,
		perRejectedBundle: points.PerRejectedBundle,
		autoApproveMin:    review.AutoApproveMinPoints,
	}
}

// AwardApproval credits cards materialized or linked from a bundle.
func (p *PointsService) AwardApproval(ctx context.Context, store PointsStore, userID uint, cards int) (int, error) {
	if cards <= 0 || p.perApprovedCard == 0 {
		return 0, nil
	}
	applied, err := store.AdjustUserPoints(ctx, userID, cards*p.perApprovedCard)
	if err != nil {
		return 0, err
	}
	zap.L().Debug("points awarded", zap.Uint("user_id", userID), zap.Int("points", applied))
	return applied, nil
}

// DeductRejection debits a rejected bundle, never below zero. It returns the
// number of points actually removed.
func (p *PointsService) DeductRejection(ctx context.Context, store PointsStore, userID uint) (int, error) {
	if p.perRejectedBundle == 0 {
		return 0, nil
	}
	applied, err := store.AdjustUserPoints(ctx, userID, -p.perRejectedBundle)
	if err != nil {
		return 0, err
	}
	return -applied, nil
}

// CanAutoApprove reports whether a user's fully resolved bundles skip the
// queue. A negative threshold disables auto-approval.
func (p *PointsService) CanAutoApprove(user *models.User) bool {
	if p.autoApproveMin < 0 || user == nil {
		return false
	}
	return user.Points >= p.autoApproveMin
}
