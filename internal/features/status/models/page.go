package models

// Page is one slice of the activity history
type Page struct {
	Activities []Activity `json:"activities"`
	Pagination Pagination `json:"pagination"`
}

// Pagination describes where a Page sits within the history
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}
