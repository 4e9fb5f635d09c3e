package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregateManualPayment OutboxAggregateType = "manual_payment"
	AggregateSubscription  OutboxAggregateType = "subscription"
	AggregateClinic        OutboxAggregateType = "clinic"
	AggregateSupplier      OutboxAggregateType = "supplier"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateManualPayment,
	AggregateSubscription,
	AggregateClinic,
	AggregateSupplier,
}

// IsValid reports whether the value matches a known aggregate.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// AggregateForTenant maps a tenant kind to its aggregate type.
func AggregateForTenant(kind TenantKind) OutboxAggregateType {
	if kind == TenantKindSupplier {
		return AggregateSupplier
	}
	return AggregateClinic
}

// OutboxEventType names a domain event published through the outbox.
type OutboxEventType string

const (
	EventManualPaymentSubmitted OutboxEventType = "manual_payment.submitted"
	EventManualPaymentApproved  OutboxEventType = "manual_payment.approved"
	EventManualPaymentRejected  OutboxEventType = "manual_payment.rejected"
	EventSubscriptionActivated  OutboxEventType = "subscription.activated"
	EventTenantBootstrapped     OutboxEventType = "tenant.bootstrapped"
	EventClinicEntitlementLapse OutboxEventType = "clinic.entitlement_expired"
)

var validOutboxEventTypes = []OutboxEventType{
	EventManualPaymentSubmitted,
	EventManualPaymentApproved,
	EventManualPaymentRejected,
	EventSubscriptionActivated,
	EventTenantBootstrapped,
	EventClinicEntitlementLapse,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
