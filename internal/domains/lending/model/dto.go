package model

// ResolveRequest closes a discrepancy. Apply defaults to true: the recorded
// delta is added to the book's stock. Apply=false closes it without touching
// stock, for corrections already made by hand.
type ResolveRequest struct {
	Apply *bool `json:"apply"`
}

func (r ResolveRequest) Validate() error {
	return nil
}

func (r ResolveRequest) ShouldApply() bool {
	return r.Apply == nil || *r.Apply
}
