package casestack

// Resource names double as the JSON root element of API responses.
const (
	ResourceCarrier  = "Carrier"
	ResourceCustomer = "Customer"
	ResourceShipment = "Shipment"
	ResourceAddress  = "Address"
)

// Resource is implemented by every record type of the API.
type Resource interface {
	ResourceName() string
}

// Customizable is the set of resource types that carry custom field
// definitions.
type Customizable interface {
	Carrier | Customer
	Resource
}

// Carrier is a transportation provider.
type Carrier struct {
	CarrierID    string         `json:"carrier_id"`
	Name         string         `json:"name,omitempty"`
	SCAC         string         `json:"scac,omitempty"`
	MCNumber     string         `json:"mc_number,omitempty"`
	DOTNumber    string         `json:"dot_number,omitempty"`
	Email        string         `json:"email,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	Active       bool           `json:"active"`
	Address      *Address       `json:"address,omitempty"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`

	link record
}

// ResourceName implements Resource.
func (Carrier) ResourceName() string { return ResourceCarrier }

// Customer is a shipper account.
type Customer struct {
	CustomerID     string         `json:"customer_id"`
	Name           string         `json:"name,omitempty"`
	AccountNumber  string         `json:"account_number,omitempty"`
	Email          string         `json:"email,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	CreditLimit    float64        `json:"credit_limit,omitempty"`
	Active         bool           `json:"active"`
	BillingAddress *Address       `json:"billing_address,omitempty"`
	CustomFields   map[string]any `json:"custom_fields,omitempty"`

	link record
}

// ResourceName implements Resource.
func (Customer) ResourceName() string { return ResourceCustomer }

// Shipment is a load moving between an origin and a destination. The id is
// numeric on the API but transported as a string.
type Shipment struct {
	ShipmentID     string         `json:"shipment_id"`
	CustomerID     string         `json:"customer_id,omitempty"`
	CarrierID      string         `json:"carrier_id,omitempty"`
	Status         string         `json:"status,omitempty"`
	ReadOnly       bool           `json:"readonly"`
	Reference      string         `json:"reference,omitempty"`
	PONumber       string         `json:"po_number,omitempty"`
	PickupDate     string         `json:"pickup_date,omitempty"`
	DeliveryDate   string         `json:"delivery_date,omitempty"`
	Origin         *Address       `json:"origin,omitempty"`
	Destination    *Address       `json:"destination,omitempty"`
	TotalWeight    float64        `json:"total_weight,omitempty"`
	TotalCharge    float64        `json:"total_charge,omitempty"`
	Currency       string         `json:"currency,omitempty"`
	TrackingNumber string         `json:"tracking_number,omitempty"`
	CustomFields   map[string]any `json:"custom_fields,omitempty"`

	link record
}

// ResourceName implements Resource.
func (Shipment) ResourceName() string { return ResourceShipment }

// TypedStatus returns the status as a ShipmentStatus. ok is false when the
// label is not one of the known statuses.
func (s *Shipment) TypedStatus() (status ShipmentStatus, ok bool) {
	st, err := ParseShipmentStatus(s.Status)
	return st, err == nil
}

// SetStatus sets the status label from its typed value. The change reaches
// the API on the next Save.
func (s *Shipment) SetStatus(status ShipmentStatus) {
	s.Status = status.String()
}

// Address is a postal location. Addresses are read-only through this client.
type Address struct {
	AddressID    string `json:"address_id,omitempty"`
	Name         string `json:"name,omitempty"`
	Company      string `json:"company,omitempty"`
	Line1        string `json:"address_1,omitempty"`
	Line2        string `json:"address_2,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Country      string `json:"country,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	Residential  bool   `json:"residential,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// ResourceName implements Resource.
func (Address) ResourceName() string { return ResourceAddress }

// CustomFields describes the custom field definitions of a parent type.
type CustomFields struct {
	Parent string        `json:"parent,omitempty"`
	Fields []CustomField `json:"fields"`
}

// CustomField is a single custom field definition.
type CustomField struct {
	Name     string   `json:"name"`
	Label    string   `json:"label,omitempty"`
	Type     string   `json:"type,omitempty"` // "text", "number", "date", "select"
	Required bool     `json:"required,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// Field returns the definition named name.
func (cf *CustomFields) Field(name string) (CustomField, bool) {
	for _, f := range cf.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return CustomField{}, false
}
