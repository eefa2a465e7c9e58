package valueobject

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is a value object representing a postal address.
// It is immutable - all operations return new Address instances.
// Fields are normalized on construction (trimmed, inner whitespace collapsed,
// state and country upper-cased) so equal addresses hash identically.
type Address struct {
	name    string
	company string
	street1 string
	street2 string
	city    string
	state   string
	zip     string
	country string
	phone   string
	email   string
}

// AddressOption is a functional option for configuring Address
type AddressOption func(*Address)

// WithCompany sets the company line
func WithCompany(company string) AddressOption {
	return func(a *Address) {
		a.company = clean(company)
	}
}

// WithStreet2 sets the second street line
func WithStreet2(street2 string) AddressOption {
	return func(a *Address) {
		a.street2 = clean(street2)
	}
}

// WithPhone sets the contact phone
func WithPhone(phone string) AddressOption {
	return func(a *Address) {
		a.phone = clean(phone)
	}
}

// WithEmail sets the contact email
func WithEmail(email string) AddressOption {
	return func(a *Address) {
		a.email = strings.ToLower(clean(email))
	}
}

// NewAddress creates a new Address.
// Name, street1, city, state, zip and a two-letter country code are required.
func NewAddress(name, street1, city, state, zip, country string, opts ...AddressOption) (Address, error) {
	addr := normalized(name, street1, city, state, zip, country, opts...)
	if err := addr.Validate(); err != nil {
		return Address{}, err
	}
	return addr, nil
}

// NewUnverifiedAddress creates a normalized Address without enforcing required
// fields. It is used to keep a best-effort snapshot of storefront input that
// still needs correction before it can be shipped to.
func NewUnverifiedAddress(name, street1, city, state, zip, country string, opts ...AddressOption) Address {
	return normalized(name, street1, city, state, zip, country, opts...)
}

func normalized(name, street1, city, state, zip, country string, opts ...AddressOption) Address {
	addr := Address{
		name:    clean(name),
		street1: clean(street1),
		city:    clean(city),
		state:   strings.ToUpper(clean(state)),
		zip:     strings.ToUpper(clean(zip)),
		country: strings.ToUpper(clean(country)),
	}
	for _, opt := range opts {
		opt(&addr)
	}
	return addr
}

// clean trims and collapses runs of whitespace to a single space
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Validate reports the first missing required field
func (a Address) Validate() error {
	switch {
	case a.name == "":
		return fmt.Errorf("name is required")
	case a.street1 == "":
		return fmt.Errorf("street1 is required")
	case a.city == "":
		return fmt.Errorf("city is required")
	case a.state == "":
		return fmt.Errorf("state is required")
	case a.zip == "":
		return fmt.Errorf("zip is required")
	case len(a.country) != 2:
		return fmt.Errorf("country must be a two-letter ISO code")
	}
	return nil
}

func (a Address) Name() string    { return a.name }
func (a Address) Company() string { return a.company }
func (a Address) Street1() string { return a.street1 }
func (a Address) Street2() string { return a.street2 }
func (a Address) City() string    { return a.city }
func (a Address) State() string   { return a.state }
func (a Address) Zip() string     { return a.zip }
func (a Address) Country() string { return a.country }
func (a Address) Phone() string   { return a.phone }
func (a Address) Email() string   { return a.email }

// IsEmpty returns true if no address line is set
func (a Address) IsEmpty() bool {
	return a.street1 == "" && a.city == "" && a.zip == ""
}

// IsDomesticTo reports whether both addresses share a country
func (a Address) IsDomesticTo(other Address) bool {
	return a.country == other.country
}

// ContentHash is a stable hex digest over the normalized field set.
// Comparison is case-insensitive so "Main St" and "MAIN ST" collapse.
func (a Address) ContentHash() string {
	fields := []string{
		a.name, a.company, a.street1, a.street2, a.city,
		a.state, a.zip, a.country, a.phone, a.email,
	}
	h := sha256.New()
	for _, f := range fields {
		h.Write([]byte(strings.ToLower(f)))
		h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// String returns a single-line representation of the address
func (a Address) String() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.street1, a.street2, a.city, a.state, a.zip, a.country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Equals returns true if both addresses normalize to the same content
func (a Address) Equals(other Address) bool {
	return a.ContentHash() == other.ContentHash()
}

// WithName returns a copy with the recipient name replaced
func (a Address) WithName(name string) Address {
	a.name = clean(name)
	return a
}

// AddressDTO is the serialized form of Address, used for JSON columns,
// API payloads and provider requests.
type AddressDTO struct {
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

// ToDTO converts Address to AddressDTO
func (a Address) ToDTO() AddressDTO {
	return AddressDTO{
		Name:    a.name,
		Company: a.company,
		Street1: a.street1,
		Street2: a.street2,
		City:    a.city,
		State:   a.state,
		Zip:     a.zip,
		Country: a.country,
		Phone:   a.phone,
		Email:   a.email,
	}
}

// ToAddress normalizes the DTO without enforcing required fields
func (d AddressDTO) ToAddress() Address {
	return NewUnverifiedAddress(d.Name, d.Street1, d.City, d.State, d.Zip, d.Country,
		WithCompany(d.Company), WithStreet2(d.Street2), WithPhone(d.Phone), WithEmail(d.Email))
}

// MarshalJSON implements json.Marshaler
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.ToDTO())
}

// UnmarshalJSON implements json.Unmarshaler.
// Stored snapshots may hold unverified input, so required fields are not enforced here.
func (a *Address) UnmarshalJSON(data []byte) error {
	var v AddressDTO
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = v.ToAddress()
	return nil
}
