package media

// Page is one page of a listing. HasNext/HasPrev are derived from page,
// limit, and total, never by re-querying.
type Page struct {
	Items   []*Media `json:"items"`
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
	Total   int      `json:"total"`
	HasNext bool     `json:"hasNext"`
	HasPrev bool     `json:"hasPrev"`
}

// NewPage assembles pagination metadata around one page of records.
func NewPage(items []*Media, page, limit, total int) Page {
	if items == nil {
		items = []*Media{}
	}
	return Page{
		Items:   items,
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasNext: page*limit < total,
		HasPrev: page > 1,
	}
}
