package models

// MenuItemRecord is one extracted catalog item. A nil field means the
// payload did not carry it; it is serialized as JSON null.
type MenuItemRecord struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
}

// ItemFailure describes an item that was skipped after all attempts.
type ItemFailure struct {
	// Container is the zero-based index of the container in document order.
	Container int `json:"container"`

	// Item is the zero-based index of the item inside its container.
	Item int `json:"item"`

	Attempts int    `json:"attempts"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}

// StrOrEmpty dereferences p, returning "" for nil.
func StrOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
