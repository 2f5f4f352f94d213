package types

// Page is one page of a paginated listing. Next and Previous are absolute
// URLs or null.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}
