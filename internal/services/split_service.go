package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "tontin/internal/errors"
	"tontin/internal/models"
	"tontin/internal/split"
)

// splitService handles expense-split business logic.
type splitService struct {
	db     *gorm.DB
	groups GroupServicer
}

// NewSplitService creates a new SplitServicer.
func NewSplitService(db *gorm.DB, groups GroupServicer) SplitServicer {
	return &splitService{db: db, groups: groups}
}

// CreateSplits replaces the split set of a group expense. Equal mode
// divides across all active members in membership order; explicit mode
// takes the caller's shares verbatim after validation. The old splits are
// deleted and the new ones inserted in one transaction, so retrying the
// same request yields the same final state.
func (s *splitService) CreateSplits(userID, transactionID uint, mode SplitMode, shares []SplitShare) ([]models.ExpenseSplit, error) {
	var created []models.ExpenseSplit
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var transaction models.Transaction
		if err := forUpdate(tx).First(&transaction, transactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrTransactionNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if !transaction.Splittable() {
			return apperrors.ErrInvalidSplitTarget
		}

		member, err := s.groups.IsGroupMember(userID, *transaction.GroupID)
		if err != nil {
			return err
		}
		if !member {
			return apperrors.ErrNotAGroupMember
		}

		var activeMembers []models.GroupMember
		if err := tx.Where("group_id = ? AND status = ?", *transaction.GroupID, models.MemberStatusActive).
			Order("created_at ASC, id ASC").
			Find(&activeMembers).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		activeIDs := make(map[uint]bool, len(activeMembers))
		orderedIDs := make([]uint, 0, len(activeMembers))
		for _, m := range activeMembers {
			activeIDs[m.UserID] = true
			orderedIDs = append(orderedIDs, m.UserID)
		}

		var computed []split.Share
		switch mode {
		case SplitModeEqual:
			computed, err = split.Equal(transaction.Amount, orderedIDs)
			if err != nil {
				return apperrors.Wrap(apperrors.ErrInvalidInput, err)
			}
		case SplitModeExplicit:
			if len(shares) == 0 {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "at least one share is required")
			}
			seen := make(map[uint]bool, len(shares))
			for _, sh := range shares {
				if !activeIDs[sh.UserID] {
					return apperrors.WithMessage(apperrors.ErrInvalidInput, "split includes a user who is not an active member")
				}
				if seen[sh.UserID] {
					return apperrors.WithMessage(apperrors.ErrInvalidInput, "duplicate user in split")
				}
				seen[sh.UserID] = true
				computed = append(computed, split.Share{UserID: sh.UserID, Amount: sh.Amount})
			}
			if err := split.ValidateSum(transaction.Amount, computed); err != nil {
				return apperrors.Wrap(apperrors.ErrSplitSumMismatch, err)
			}
		default:
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid split mode")
		}

		if err := tx.Where("transaction_id = ?", transactionID).
			Delete(&models.ExpenseSplit{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		created = make([]models.ExpenseSplit, len(computed))
		for i, sh := range computed {
			created[i] = models.ExpenseSplit{
				TransactionID: transactionID,
				UserID:        sh.UserID,
				Amount:        sh.Amount,
			}
		}
		if err := tx.Create(&created).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetSplits lists the splits of a transaction visible to the user.
func (s *splitService) GetSplits(userID, transactionID uint) ([]models.ExpenseSplit, error) {
	var transaction models.Transaction
	if err := s.db.First(&transaction, transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if transaction.GroupID == nil {
		return nil, apperrors.ErrInvalidSplitTarget
	}

	member, err := s.groups.IsGroupMember(userID, *transaction.GroupID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperrors.ErrNotAGroupMember
	}

	var splits []models.ExpenseSplit
	if err := s.db.Preload("User").
		Where("transaction_id = ?", transactionID).
		Order("id ASC").
		Find(&splits).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return splits, nil
}

// SetSplitPaid marks a share settled or unsettled. Allowed for the share's
// own user, the payer of the expense, and group admins.
func (s *splitService) SetSplitPaid(userID, splitID uint, paid bool) (*models.ExpenseSplit, error) {
	var result *models.ExpenseSplit
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var share models.ExpenseSplit
		if err := forUpdate(tx).Preload("Transaction").First(&share, splitID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrSplitNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		allowed := share.UserID == userID || share.Transaction.UserID == userID
		if !allowed && share.Transaction.GroupID != nil {
			admin, err := s.groups.IsGroupAdmin(userID, *share.Transaction.GroupID)
			if err != nil {
				return err
			}
			allowed = admin
		}
		if !allowed {
			return apperrors.ErrForbidden
		}

		updates := map[string]interface{}{"is_paid": paid}
		if paid {
			now := time.Now()
			updates["paid_at"] = now
			share.PaidAt = &now
		} else {
			updates["paid_at"] = nil
			share.PaidAt = nil
		}
		if err := tx.Model(&share).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		share.IsPaid = paid
		result = &share
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
