package constants

// Context keys shared between middleware and handlers.
const (
	ContextKeyPrincipalID = "principal_id"
	ContextKeyIsOwner     = "principal_is_owner"
	ContextKeyRequestID   = "request_id"
)

// Gateway request headers.
const (
	HeaderPrincipalID    = "X-Principal-ID"
	HeaderPrincipalOwner = "X-Principal-Owner"
	HeaderGatewayToken   = "X-Gateway-Token"
)

// Pagination limits.
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MaxSearchResults caps fuzzy search output.
const MaxSearchResults = 10
