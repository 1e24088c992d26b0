package services

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gorm.io/gorm"

	apperrors "chamapool/internal/errors"
	"chamapool/internal/logger"
	"chamapool/internal/models"
)

// allocationPalette is the fixed set of chart colors assigned to allocation
// slices in order, cycling when there are more slices than colors.
var allocationPalette = []string{
	"#0ea5e9", "#22c55e", "#f59e0b", "#ef4444", "#8b5cf6", "#14b8a6",
}

// performancePeriods is the length of the simulated valuation series.
const performancePeriods = 12

// investmentService handles investment execution, voting, and profit
// distribution.
type investmentService struct {
	db       *gorm.DB
	rooms    RoomServicer
	wallets  WalletServicer
	strategy GrowthStrategy
}

// NewInvestmentService creates a new InvestmentServicer.
func NewInvestmentService(db *gorm.DB, rooms RoomServicer, wallets WalletServicer, strategy GrowthStrategy) InvestmentServicer {
	if strategy == nil {
		strategy = NewRandomWalkStrategy()
	}
	return &investmentService{db: db, rooms: rooms, wallets: wallets, strategy: strategy}
}

// ExecuteInvestment commits the collected pool to an allocation and starts
// the simulated run. Any active member may execute once the room is ready.
// Allocations must sum to 100 percent within a small tolerance.
func (s *investmentService) ExecuteInvestment(userID, roomID string, allocations []AllocationInput) (*models.InvestmentExecution, error) {
	room, err := s.rooms.GetRoomByID(roomID)
	if err != nil {
		return nil, err
	}
	if _, err := s.rooms.GetActiveMember(roomID, userID); err != nil {
		return nil, err
	}
	if room.Status == models.RoomStatusInvesting && room.HasExecution {
		return nil, apperrors.ErrExecutionExists
	}
	if room.Status != models.RoomStatusReady {
		return nil, apperrors.ErrRoomNotReady
	}

	if len(allocations) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "at least one allocation is required")
	}
	var sum float64
	for _, a := range allocations {
		if a.Name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "allocation name is required")
		}
		if a.Allocation <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "allocation percentage must be greater than zero")
		}
		sum += a.Allocation
	}
	if math.Abs(sum-100) > 0.01 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "allocations must sum to 100 percent")
	}

	invested := room.CollectedAmount
	if invested <= 0 {
		return nil, apperrors.ErrNoContributions
	}

	breakdown := make(models.AllocationBreakdown, 0, len(allocations))
	for i, a := range allocations {
		breakdown = append(breakdown, models.AllocationSlice{
			ID:         a.ID,
			Name:       a.Name,
			Allocation: a.Allocation,
			Amount:     int64(math.Round(float64(invested) * a.Allocation / 100)),
			Color:      allocationPalette[i%len(allocationPalette)],
		})
	}

	series := s.simulateSeries(invested)
	now := time.Now()

	execution := &models.InvestmentExecution{
		RoomID:         roomID,
		Allocations:    breakdown,
		InvestedAmount: invested,
		StartedAt:      now,
		CreatedBy:      userID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if cerr := tx.Create(execution).Error; cerr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, cerr)
		}

		// Re-execution replaces the previous snapshot outright.
		if derr := tx.Where("room_id = ?", roomID).Delete(&models.InvestmentAnalytics{}).Error; derr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, derr)
		}
		analytics := &models.InvestmentAnalytics{
			RoomID:         roomID,
			InvestedAmount: invested,
			Series:         series,
			Breakdown:      breakdown,
		}
		if cerr := tx.Create(analytics).Error; cerr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, cerr)
		}

		if uerr := tx.Model(&models.InvestmentRoom{}).
			Where("id = ?", roomID).
			Updates(map[string]interface{}{
				"status":                models.RoomStatusInvesting,
				"has_execution":         true,
				"investment_start_date": &now,
			}).Error; uerr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, uerr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("investment executed",
		"room_id", roomID,
		"invested", invested,
		"assets", len(breakdown),
		"executed_by", userID,
	)
	return execution, nil
}

// simulateSeries runs the growth strategy over the fixed number of periods,
// starting from the invested amount at period zero.
func (s *investmentService) simulateSeries(invested int64) models.PerformanceSeries {
	series := make(models.PerformanceSeries, 0, performancePeriods+1)
	series = append(series, models.PerformancePoint{Period: 0, Value: invested})

	current := invested
	for period := 1; period <= performancePeriods; period++ {
		value, drift := s.strategy.NextPeriod(current)
		series = append(series, models.PerformancePoint{
			Period:   period,
			Value:    value,
			DriftPct: drift,
		})
		current = value
	}
	return series
}

// GetAnalytics retrieves the live valuation snapshot for a room.
func (s *investmentService) GetAnalytics(roomID string) (*models.InvestmentAnalytics, error) {
	var analytics models.InvestmentAnalytics
	if err := s.db.Where("room_id = ?", roomID).First(&analytics).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAnalyticsNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &analytics, nil
}

// CastVote records or overwrites a member's vote on a recommendation.
func (s *investmentService) CastVote(userID, roomID, recommendationID string, vote models.VoteChoice) (*models.RecommendationVote, error) {
	if recommendationID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "recommendation ID is required")
	}
	if vote != models.VoteApprove && vote != models.VoteReject {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "vote must be approve or reject")
	}
	if _, err := s.rooms.GetActiveMember(roomID, userID); err != nil {
		return nil, err
	}

	var record models.RecommendationVote
	err := s.db.Where("room_id = ? AND recommendation_id = ? AND user_id = ?", roomID, recommendationID, userID).
		First(&record).Error
	switch {
	case err == nil:
		if record.Vote != vote {
			if uerr := s.db.Model(&record).Update("vote", vote).Error; uerr != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, uerr)
			}
			record.Vote = vote
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		record = models.RecommendationVote{
			RoomID:           roomID,
			RecommendationID: recommendationID,
			UserID:           userID,
			Vote:             vote,
		}
		if cerr := s.db.Create(&record).Error; cerr != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, cerr)
		}
	default:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &record, nil
}

// GetVoteAggregate tallies votes for a recommendation, or for the whole room
// when recommendationID is empty. Total reflects the room's current member
// count so callers can render participation; a missing room tallies as zero.
func (s *investmentService) GetVoteAggregate(roomID, recommendationID string) (*VoteAggregate, error) {
	agg := &VoteAggregate{RoomID: roomID, RecommendationID: recommendationID}

	var err error
	if agg.Approve, err = s.countVotes(roomID, recommendationID, models.VoteApprove); err != nil {
		return nil, err
	}
	if agg.Reject, err = s.countVotes(roomID, recommendationID, models.VoteReject); err != nil {
		return nil, err
	}

	room, err := s.rooms.GetRoomByID(roomID)
	if err == nil {
		agg.Total = room.CurrentMembers
	} else if !errors.Is(err, apperrors.ErrRoomNotFound) {
		return nil, err
	}

	return agg, nil
}

func (s *investmentService) countVotes(roomID, recommendationID string, choice models.VoteChoice) (int64, error) {
	q := s.db.Model(&models.RecommendationVote{}).Where("room_id = ? AND vote = ?", roomID, choice)
	if recommendationID != "" {
		q = q.Where("recommendation_id = ?", recommendationID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count, nil
}

// stopThreshold is the quorum for stopping an asset: 70 percent of current
// members, rounded up, never below one. A room with no members has no quorum.
func stopThreshold(members int) int {
	if members <= 0 {
		return 0
	}
	t := int(math.Ceil(0.7 * float64(members)))
	if t < 1 {
		t = 1
	}
	return t
}

// StopInvestment casts the member's stop vote for an asset line. Casting
// twice is a no-op. When the quorum is reached the asset's share of any
// unrealized profit is distributed to members in proportion to their stakes;
// the room keeps investing. Repeated quorum hits are safe because payout
// references are deterministic per (recommendation, member).
func (s *investmentService) StopInvestment(userID, roomID, recommendationID, assetName string) (*StopResult, error) {
	if recommendationID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "recommendation ID is required")
	}

	room, err := s.rooms.GetRoomByID(roomID)
	if err != nil {
		return nil, err
	}
	if _, err := s.rooms.GetActiveMember(roomID, userID); err != nil {
		return nil, err
	}
	if room.Status != models.RoomStatusInvesting {
		return nil, apperrors.ErrRoomNotInvesting
	}

	vote := models.StopVote{
		RoomID:           roomID,
		RecommendationID: recommendationID,
		UserID:           userID,
		VotedAt:          time.Now(),
	}
	if err := s.db.Where("room_id = ? AND recommendation_id = ? AND user_id = ?", roomID, recommendationID, userID).
		FirstOrCreate(&vote).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var votes int64
	if err := s.db.Model(&models.StopVote{}).
		Where("room_id = ? AND recommendation_id = ?", roomID, recommendationID).
		Count(&votes).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &StopResult{
		Votes:     votes,
		Threshold: stopThreshold(room.CurrentMembers),
	}
	if room.CurrentMembers <= 0 || votes < int64(result.Threshold) {
		return result, nil
	}

	analytics, err := s.GetAnalytics(roomID)
	if err != nil {
		if errors.Is(err, apperrors.ErrAnalyticsNotFound) {
			// Quorum reached but nothing is running; report the tally only.
			return result, nil
		}
		return nil, err
	}

	pool := s.assetProfitShare(analytics, recommendationID, assetName)
	result.Stopped = true

	if pool <= 0 {
		logger.Get().Infow("stop quorum reached, no profit to distribute",
			"room_id", roomID, "recommendation_id", recommendationID)
		return result, nil
	}

	stakes, err := s.memberStakes(roomID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		payouts, derr := s.distributeReturns(tx, room, pool, stakes,
			fmt.Sprintf("STP-%s-%s", recommendationID, roomID),
			fmt.Sprintf("Early returns from %s", room.Name))
		if derr != nil {
			return derr
		}
		result.Payouts = payouts
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("asset stopped by quorum",
		"room_id", roomID,
		"recommendation_id", recommendationID,
		"votes", votes,
		"threshold", result.Threshold,
		"distributed", pool,
	)
	return result, nil
}

// assetProfitShare computes the asset's slice of the portfolio's unrealized
// profit. The weight comes from the allocation breakdown when the asset can
// be matched by ID or name; otherwise the profit is split evenly across all
// slices. Losses distribute nothing.
func (s *investmentService) assetProfitShare(analytics *models.InvestmentAnalytics, recommendationID, assetName string) int64 {
	profit := analytics.FinalValue() - analytics.InvestedAmount
	if profit <= 0 {
		return 0
	}

	weight := 0.0
	matched := false
	for _, slice := range analytics.Breakdown {
		if (recommendationID != "" && slice.ID == recommendationID) ||
			(assetName != "" && slice.Name == assetName) {
			weight = slice.Allocation / 100
			matched = true
			break
		}
	}
	if !matched {
		if len(analytics.Breakdown) == 0 {
			return 0
		}
		weight = 1 / float64(len(analytics.Breakdown))
	}

	return int64(math.Round(float64(profit) * weight))
}

// memberStakes maps active members to their cumulative stakes.
func (s *investmentService) memberStakes(roomID string) (map[string]int64, error) {
	members, err := s.rooms.GetRoomMembers(roomID)
	if err != nil {
		return nil, err
	}
	stakes := make(map[string]int64, len(members))
	for _, m := range members {
		if m.ContributionAmount > 0 {
			stakes[m.UserID] = m.ContributionAmount
		}
	}
	return stakes, nil
}

// GetStopAggregate tallies stop votes for a recommendation, or distinct
// voters across the room when recommendationID is empty.
func (s *investmentService) GetStopAggregate(roomID, recommendationID string) (*StopAggregate, error) {
	agg := &StopAggregate{}

	base := s.db.Model(&models.StopVote{}).Where("room_id = ?", roomID)
	if recommendationID != "" {
		if err := base.Where("recommendation_id = ?", recommendationID).Count(&agg.Votes).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	} else {
		if err := base.Distinct("user_id").Count(&agg.Votes).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	room, err := s.rooms.GetRoomByID(roomID)
	if err == nil {
		agg.Threshold = stopThreshold(room.CurrentMembers)
	} else if !errors.Is(err, apperrors.ErrRoomNotFound) {
		return nil, err
	}

	return agg, nil
}

// EndInvestment settles a running investment at its final simulated value and
// closes the room. Only the creator may end. Each member receives their
// principal back plus their share of any profit, both in proportion to their
// completed contributions; on a loss the principal repayment shrinks pro
// rata instead. The whole settlement commits in one transaction.
func (s *investmentService) EndInvestment(userID, roomID string) (*EndSummary, error) {
	room, err := s.rooms.GetRoomByID(roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatorID != userID {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, "only the room creator can end the investment")
	}
	if room.Status != models.RoomStatusInvesting {
		return nil, apperrors.ErrRoomNotInvesting
	}

	analytics, err := s.GetAnalytics(roomID)
	if err != nil {
		return nil, err
	}

	contributions, err := s.completedContributionsByUser(roomID)
	if err != nil {
		return nil, err
	}
	var totalContrib int64
	for _, amount := range contributions {
		totalContrib += amount
	}
	if totalContrib <= 0 {
		return nil, apperrors.ErrNoContributions
	}

	invested := analytics.InvestedAmount
	finalValue := analytics.FinalValue()
	totalProfit := finalValue - invested

	summary := &EndSummary{
		TotalInvested: invested,
		FinalValue:    finalValue,
		TotalProfit:   totalProfit,
		MembersCount:  len(contributions),
	}

	memberIDs := make([]string, 0, len(contributions))
	for id := range contributions {
		memberIDs = append(memberIDs, id)
	}
	sort.Strings(memberIDs)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, memberID := range memberIDs {
			contributed := contributions[memberID]
			profitShare := mulDiv(totalProfit, contributed, totalContrib)
			payout := contributed + profitShare
			if payout < 0 {
				payout = 0
			}

			outcome := MemberDistribution{
				UserID:       memberID,
				Contribution: contributed,
				ProfitShare:  profitShare,
				Payout:       payout,
			}

			principal := payout
			if principal > contributed {
				principal = contributed
			}
			gain := payout - principal

			wallet, werr := s.wallets.GetWalletByUserID(tx, memberID)
			if werr != nil {
				if errors.Is(werr, apperrors.ErrWalletNotFound) {
					logger.Get().Warnw("skipping payout, wallet missing",
						"room_id", roomID, "user_id", memberID, "amount", payout)
					summary.Distribution = append(summary.Distribution, outcome)
					continue
				}
				return werr
			}

			if principal > 0 {
				if derr := s.disburse(tx, room, wallet, memberID, principal, models.MutationRefund,
					fmt.Sprintf("INV-PRN-%s-%s", roomID, memberID),
					fmt.Sprintf("Principal returned from %s", room.Name)); derr != nil {
					return derr
				}
			}
			if gain > 0 {
				if derr := s.disburse(tx, room, wallet, memberID, gain, models.MutationReturn,
					fmt.Sprintf("INV-END-%s-%s", roomID, memberID),
					fmt.Sprintf("Investment returns from %s", room.Name)); derr != nil {
					return derr
				}
			}

			outcome.Disbursed = true
			summary.Distribution = append(summary.Distribution, outcome)
		}

		now := time.Now()
		if uerr := tx.Model(&models.InvestmentRoom{}).
			Where("id = ?", roomID).
			Updates(map[string]interface{}{
				"status":                models.RoomStatusClosed,
				"closed_at":             &now,
				"final_invested_amount": invested,
				"final_portfolio_value": finalValue,
				"final_profit":          totalProfit,
			}).Error; uerr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, uerr)
		}

		// The snapshot is final on the room now; the live row goes away.
		if derr := tx.Where("room_id = ?", roomID).Delete(&models.InvestmentAnalytics{}).Error; derr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, derr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("investment ended",
		"room_id", roomID,
		"invested", invested,
		"final_value", finalValue,
		"profit", totalProfit,
		"members", summary.MembersCount,
	)
	return summary, nil
}

// disburse applies one payout to a wallet and records its completed ledger
// transaction. A reference that already exists means the payout was already
// made; the wallet is left untouched.
func (s *investmentService) disburse(tx *gorm.DB, room *models.InvestmentRoom, wallet *models.Wallet, userID string, amount int64, kind models.MutationKind, reference, description string) error {
	if _, ferr := s.wallets.FindTransactionByReference(tx, reference); ferr == nil {
		return nil
	} else if !errors.Is(ferr, apperrors.ErrTransactionNotFound) {
		return ferr
	}

	if _, merr := s.wallets.ApplyMutation(tx, wallet.ID, amount, kind); merr != nil {
		return merr
	}
	transaction, cerr := s.wallets.CreateTransaction(tx, TransactionParams{
		UserID:      userID,
		WalletID:    wallet.ID,
		Type:        kind,
		Amount:      amount,
		Reference:   reference,
		Description: description,
		RoomID:      &room.ID,
		RoomName:    room.Name,
	})
	if cerr != nil {
		return cerr
	}
	return s.wallets.CompleteTransaction(tx, transaction.ID)
}

// completedContributionsByUser groups a room's completed contributions by
// contributor.
func (s *investmentService) completedContributionsByUser(roomID string) (map[string]int64, error) {
	type row struct {
		UserID string
		Total  int64
	}
	var rows []row
	if err := s.db.Model(&models.Contribution{}).
		Select("user_id, SUM(amount) as total").
		Where("room_id = ? AND status = ?", roomID, models.ContributionCompleted).
		Group("user_id").
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	contributions := make(map[string]int64, len(rows))
	for _, r := range rows {
		if r.Total > 0 {
			contributions[r.UserID] = r.Total
		}
	}
	return contributions, nil
}

// mulDiv computes value * num / den in int64, truncating toward zero.
func mulDiv(value, num, den int64) int64 {
	if den == 0 {
		return 0
	}
	return value * num / den
}
