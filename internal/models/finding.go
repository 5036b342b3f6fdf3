package models

// Finding is a ListingRecord as stored in the findings index.
type Finding struct {
	ID             int64  `json:"id" db:"id"`
	Seq            int    `json:"seq" db:"seq"`
	SourceURL      string `json:"source_url" db:"source_url"`
	Title          string `json:"title" db:"title"`
	GoodsNo        string `json:"goods_no" db:"goods_no"`
	Status         string `json:"status" db:"status"`
	TightInventory bool   `json:"tight_inventory" db:"tight_inventory"`
	TakenDown      bool   `json:"taken_down" db:"taken_down"`
	// Deleted is "", "yes" or "no".
	Deleted string `json:"deleted" db:"deleted"`
}

// FindingFilters holds the query parameters accepted by the findings API.
type FindingFilters struct {
	// Flag is "", "tight" or "taken_down".
	Flag string
	// For Pagination
	Limit  int
	Offset int
}

// FindingsResponse is the JSON body returned by GET /findings.
type FindingsResponse struct {
	Data       []Finding  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
}
