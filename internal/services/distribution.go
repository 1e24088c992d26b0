package services

import (
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	apperrors "chamapool/internal/errors"
	"chamapool/internal/logger"
	"chamapool/internal/models"
)

// distributeReturns splits a profit pool across members in proportion to
// their stakes and credits each share as a completed return. Shares are
// truncated integer division, so the disbursed total never exceeds the pool.
// A member whose share rounds to zero, or whose wallet is missing, is
// reported but not paid. References are derived from the prefix and member
// ID, so replaying a batch pays nobody twice.
func (s *investmentService) distributeReturns(tx *gorm.DB, room *models.InvestmentRoom, pool int64, stakes map[string]int64, refPrefix, description string) ([]MemberPayout, error) {
	var totalStake int64
	for _, stake := range stakes {
		totalStake += stake
	}
	if pool <= 0 || totalStake <= 0 {
		return nil, nil
	}

	memberIDs := make([]string, 0, len(stakes))
	for id := range stakes {
		memberIDs = append(memberIDs, id)
	}
	sort.Strings(memberIDs)

	payouts := make([]MemberPayout, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		stake := stakes[memberID]
		share := mulDiv(pool, stake, totalStake)

		payout := MemberPayout{UserID: memberID, Stake: stake, Share: share}
		if share <= 0 {
			payouts = append(payouts, payout)
			continue
		}

		wallet, werr := s.wallets.GetWalletByUserID(tx, memberID)
		if werr != nil {
			if errors.Is(werr, apperrors.ErrWalletNotFound) {
				logger.Get().Warnw("skipping return, wallet missing",
					"room_id", room.ID, "user_id", memberID, "amount", share)
				payouts = append(payouts, payout)
				continue
			}
			return nil, werr
		}

		reference := fmt.Sprintf("%s-%s", refPrefix, memberID)
		if derr := s.disburse(tx, room, wallet, memberID, share, models.MutationReturn, reference, description); derr != nil {
			return nil, derr
		}

		payout.Disbursed = true
		payouts = append(payouts, payout)
	}

	return payouts, nil
}
