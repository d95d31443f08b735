package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Dashboard-specific error codes
const (
	// Connectivity errors: recovered locally, surfaced as a cleared status
	CodeNoChainConnectivity  Code = "NO_CHAIN_CONNECTIVITY"
	CodeEthereumRPCError     Code = "ETHEREUM_RPC_ERROR"
	CodeUnsupportedChain     Code = "UNSUPPORTED_CHAIN"
	CodeProviderSubscription Code = "PROVIDER_SUBSCRIPTION_FAILED"

	// Call-time failures from transaction encoding
	CodeIdentityMissing     Code = "IDENTITY_MISSING"
	CodeChainMissing        Code = "CHAIN_MISSING"
	CodeUnknownContractKind Code = "UNKNOWN_CONTRACT_KIND"
	CodeEncodingFailed      Code = "ENCODING_FAILED"
	CodeContractCallFailed  Code = "CONTRACT_CALL_FAILED"
	CodeSigningFailed       Code = "SIGNING_FAILED"

	// Delegated-custody container errors
	CodeRelayFailed       Code = "RELAY_FAILED"
	CodeContainerClosed   Code = "CONTAINER_CLOSED"
	CodeWebSocketSendFail Code = "WEBSOCKET_SEND_ERROR"

	// Downstream data errors
	CodeSubgraphQueryFailed Code = "SUBGRAPH_QUERY_FAILED"
	CodePoolNotFound        Code = "POOL_NOT_FOUND"

	// Circuit breaker errors
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
