package types

// Address represents a physical address
type Address struct {
	Street     string  `json:"street"`
	City       string  `json:"city"`
	Province   string  `json:"province"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"` // ISO 3166-1 alpha-2, default "CA"
	Lat        float64 `json:"lat,omitempty"`
	Lng        float64 `json:"lng,omitempty"`
}

// NewAddress creates a new address with Canada as default country
func NewAddress(street, city, province, postalCode string) Address {
	return Address{
		Street:     street,
		City:       city,
		Province:   province,
		PostalCode: postalCode,
		Country:    "CA",
	}
}

// WithCoordinates adds geographic coordinates to the address
func (a Address) WithCoordinates(lat, lng float64) Address {
	a.Lat = lat
	a.Lng = lng
	return a
}
