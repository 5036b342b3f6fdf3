package models

// Flags are the risk markers found on a console row.
type Flags struct {
	TightInventory bool `json:"tightInventory"`
	TakenDown      bool `json:"takenDown"`
}

// AtRisk reports whether at least one marker is set.
func (f Flags) AtRisk() bool {
	return f.TightInventory || f.TakenDown
}

// ListingRecord holds everything captured for one at-risk row of the console.
// Deleted is nil when no deletion was attempted for the row.
type ListingRecord struct {
	SourceURL string `json:"sourceUrl"`
	Title     string `json:"title"`
	GoodsNo   string `json:"goodsNo"`
	Status    string `json:"status"`
	Flags     Flags  `json:"flags"`
	Deleted   *bool  `json:"deleted,omitempty"`
}

// Identity is the (title, goods number) pair used to find a row again after
// the table re-renders.
type Identity struct {
	Title   string
	GoodsNo string
}

// Identity returns the lookup key of the record.
func (r ListingRecord) Identity() Identity {
	return Identity{Title: r.Title, GoodsNo: r.GoodsNo}
}

// Bool returns a pointer to b, for filling ListingRecord.Deleted.
func Bool(b bool) *bool {
	return &b
}
