package domain

import "time"

// ServiceType is the kind of on-site service a customer can book.
type ServiceType string

const (
	ServiceDemo         ServiceType = "demo"
	ServiceInstallation ServiceType = "installation"
	ServiceMaintenance  ServiceType = "maintenance"
	ServiceTraining     ServiceType = "training"
)

var ServiceTypes = []ServiceType{ServiceDemo, ServiceInstallation, ServiceMaintenance, ServiceTraining}

func (t ServiceType) Valid() bool {
	for _, known := range ServiceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Description is the customer-facing label of the service.
func (t ServiceType) Description() string {
	switch t {
	case ServiceDemo:
		return "Product demonstration"
	case ServiceInstallation:
		return "Installation and commissioning"
	case ServiceMaintenance:
		return "Preventive maintenance"
	case ServiceTraining:
		return "Operator training"
	}
	return string(t)
}

const BookingStatusScheduled = "scheduled"

// ServiceBooking is a scheduled on-site visit. Status transitions happen outside this service.
type ServiceBooking struct {
	ID              string      `json:"id"`
	CustomerID      string      `json:"customerId"`
	ServiceType     ServiceType `json:"serviceType"`
	ProductID       string      `json:"productId,omitempty"`
	ScheduledDate   time.Time   `json:"scheduledDate"`
	DurationMinutes int         `json:"durationMinutes"`
	Location        string      `json:"location"`
	Notes           string      `json:"notes,omitempty"`
	Status          string      `json:"status"`
	CreatedAt       time.Time   `json:"createdAt"`
}
