package models

// AddressType classifies an address for display purposes.
type AddressType string

const (
	AddressHome  AddressType = "home"
	AddressWork  AddressType = "work"
	AddressOther AddressType = "other"
)

// Address represents a shipping address belonging to the current user.
// The ID is server-assigned and immutable. At most one cached address may
// have IsDefault set; the profile service maintains that invariant.
type Address struct {
	ID           string      `json:"id"`
	FullName     string      `json:"full_name"`
	Phone        string      `json:"phone"`
	AddressLine1 string      `json:"address_line1"`
	AddressLine2 string      `json:"address_line2,omitempty"`
	City         string      `json:"city"`
	State        string      `json:"state"`
	ZipCode      string      `json:"zip_code"`
	Country      string      `json:"country"`
	Type         AddressType `json:"address_type"`
	IsDefault    bool        `json:"is_default"`
}

// AddressInput is the client-supplied portion of an address, used for both
// add and update requests.
type AddressInput struct {
	FullName     string      `json:"full_name"`
	Phone        string      `json:"phone"`
	AddressLine1 string      `json:"address_line1"`
	AddressLine2 string      `json:"address_line2,omitempty"`
	City         string      `json:"city"`
	State        string      `json:"state"`
	ZipCode      string      `json:"zip_code"`
	Country      string      `json:"country"`
	Type         AddressType `json:"address_type"`
}
