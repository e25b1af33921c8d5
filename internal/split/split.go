// Package split partitions a group expense into per-member shares. It is
// pure arithmetic over minor currency units; persistence and membership
// checks stay in the service layer.
package split

import "fmt"

// Share is one member's computed part of an expense.
type Share struct {
	UserID uint
	Amount int64
}

// Equal divides total evenly across userIDs using the largest-remainder
// method: every member gets total/n, and the first total%n members in the
// given order receive one extra minor unit. The order must be stable
// (membership creation order) so repeated calls produce identical shares.
func Equal(total int64, userIDs []uint) ([]Share, error) {
	if total <= 0 {
		return nil, fmt.Errorf("split: total must be positive, got %d", total)
	}
	if len(userIDs) == 0 {
		return nil, fmt.Errorf("split: no members to split across")
	}

	n := int64(len(userIDs))
	base := total / n
	extra := total % n

	shares := make([]Share, len(userIDs))
	for i, id := range userIDs {
		amount := base
		if int64(i) < extra {
			amount++
		}
		shares[i] = Share{UserID: id, Amount: amount}
	}
	return shares, nil
}

// ValidateSum checks the split-sum invariant: shares must sum exactly to
// total, with every share positive.
func ValidateSum(total int64, shares []Share) error {
	var sum int64
	for _, s := range shares {
		if s.Amount <= 0 {
			return fmt.Errorf("split: share for user %d must be positive, got %d", s.UserID, s.Amount)
		}
		sum += s.Amount
	}
	if sum != total {
		return fmt.Errorf("split: shares sum to %d, expected %d", sum, total)
	}
	return nil
}
