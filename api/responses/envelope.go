package responses

// SuccessEnvelope wraps JSON bodies for health and other non-push responses.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorBody tells the caller whether the same request is worth sending again.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}
