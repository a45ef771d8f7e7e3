package domain

type Category struct {
	ID          ProductCategory `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	SortOrder   int             `json:"sortOrder"`
}
