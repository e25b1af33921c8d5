package split

import "testing"

func TestEqual(t *testing.T) {
	t.Run("divides_evenly", func(t *testing.T) {
		shares, err := Equal(30000, []uint{1, 2, 3})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, s := range shares {
			if s.Amount != 10000 {
				t.Errorf("user %d: expected 10000, got %d", s.UserID, s.Amount)
			}
		}
	})

	t.Run("remainder_goes_to_first_members", func(t *testing.T) {
		shares, err := Equal(10, []uint{1, 2, 3})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []int64{4, 3, 3}
		for i, s := range shares {
			if s.Amount != want[i] {
				t.Errorf("share %d: expected %d, got %d", i, want[i], s.Amount)
			}
		}
	})

	t.Run("sum_invariant", func(t *testing.T) {
		totals := []int64{1, 7, 99, 100, 12345, 1000001}
		for n := 1; n <= 50; n++ {
			ids := make([]uint, n)
			for i := range ids {
				ids[i] = uint(i + 1)
			}
			for _, total := range totals {
				shares, err := Equal(total, ids)
				if err != nil {
					t.Fatalf("Equal(%d, %d members): %v", total, n, err)
				}
				var sum int64
				for _, s := range shares {
					sum += s.Amount
				}
				if sum != total {
					t.Fatalf("Equal(%d, %d members): shares sum to %d", total, n, sum)
				}
			}
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		ids := []uint{7, 3, 9, 1}
		first, err := Equal(1003, ids)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := Equal(1003, ids)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i := range first {
			if first[i] != second[i] {
				t.Errorf("share %d differs between calls: %+v vs %+v", i, first[i], second[i])
			}
		}
	})

	t.Run("zero_total", func(t *testing.T) {
		if _, err := Equal(0, []uint{1}); err == nil {
			t.Error("expected error for zero total")
		}
	})

	t.Run("no_members", func(t *testing.T) {
		if _, err := Equal(100, nil); err == nil {
			t.Error("expected error for empty member list")
		}
	})
}

func TestValidateSum(t *testing.T) {
	t.Run("exact_sum", func(t *testing.T) {
		shares := []Share{{UserID: 1, Amount: 600}, {UserID: 2, Amount: 400}}
		if err := ValidateSum(1000, shares); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("sum_mismatch", func(t *testing.T) {
		shares := []Share{{UserID: 1, Amount: 600}, {UserID: 2, Amount: 300}}
		if err := ValidateSum(1000, shares); err == nil {
			t.Error("expected error when shares do not sum to total")
		}
	})

	t.Run("non_positive_share", func(t *testing.T) {
		shares := []Share{{UserID: 1, Amount: 1000}, {UserID: 2, Amount: 0}}
		if err := ValidateSum(1000, shares); err == nil {
			t.Error("expected error for zero share")
		}
	})
}
