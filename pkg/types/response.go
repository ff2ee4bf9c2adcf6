package types

// Envelope wraps every successful JSON body except the gateway handshake,
// which the checkout script reads unwrapped.
type Envelope struct {
	Data any `json:"data"`
}

// ErrorBody is the shopper-facing description of a failed request.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}
