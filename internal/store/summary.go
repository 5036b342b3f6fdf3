package store

import "ListingSweeper/internal/models"

// Summary counts what a set of records says about a sweep.
type Summary struct {
	Records      int
	Tight        int
	TakenDown    int
	Deleted      int
	DeleteFailed int
}

// Summarize derives the totals from records read back from the store.
func Summarize(records []models.ListingRecord) Summary {
	var s Summary
	for _, r := range records {
		s.Records++
		if r.Flags.TightInventory {
			s.Tight++
		}
		if r.Flags.TakenDown {
			s.TakenDown++
		}
		if r.Deleted != nil {
			if *r.Deleted {
				s.Deleted++
			} else {
				s.DeleteFailed++
			}
		}
	}
	return s
}
