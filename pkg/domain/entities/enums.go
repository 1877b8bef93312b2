package entities

type CustomerStatusValue string

const (
	CustomerStatusActive    CustomerStatusValue = "active"
	CustomerStatusSuspended CustomerStatusValue = "suspended"
)

type AuditEventType string

const (
	AuditEventCustomerOnboarded AuditEventType = "customer_onboarded"
	AuditEventAPIKeyRegenerated AuditEventType = "api_key_regenerated"
)
