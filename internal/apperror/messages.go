package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	CodeNoChainConnectivity:  "No chain connectivity",
	CodeEthereumRPCError:     "Ethereum RPC call failed",
	CodeUnsupportedChain:     "Attempting to access data for untracked chain id",
	CodeProviderSubscription: "Failed to subscribe to provider notifications",

	CodeIdentityMissing:     "Attempting to do blockchain transaction with no account",
	CodeChainMissing:        "Attempting to do blockchain transaction with no chain id",
	CodeUnknownContractKind: "Unknown contract kind",
	CodeEncodingFailed:      "Failed to encode contract call",
	CodeContractCallFailed:  "Smart contract call failed",
	CodeSigningFailed:       "Wallet refused or failed to sign transaction",

	CodeRelayFailed:       "Container did not accept the transaction batch",
	CodeContainerClosed:   "Container bridge is closed",
	CodeWebSocketSendFail: "Failed to send WebSocket message",

	CodeSubgraphQueryFailed: "Subgraph query failed",
	CodePoolNotFound:        "Pool not found",

	CodeCircuitOpen: "Circuit breaker is open",
}
