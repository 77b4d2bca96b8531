package auth

// Event is the invocation payload handed to the handler by the host
// runtime. Both fields are optional; missing values fall back to the
// defaults used for direct health-style invocations.
type Event struct {
	// HTTPMethod is the HTTP method of the originating request.
	HTTPMethod string `json:"httpMethod,omitempty"`

	// Path is the request path of the originating request.
	Path string `json:"path,omitempty"`
}

// Method returns the HTTP method, defaulting to GET when unset.
func (e Event) Method() string {
	if e.HTTPMethod == "" {
		return "GET"
	}
	return e.HTTPMethod
}

// RequestPath returns the request path, defaulting to "/" when unset.
func (e Event) RequestPath() string {
	if e.Path == "" {
		return "/"
	}
	return e.Path
}

// Response is the handler's result envelope. Body carries a serialized
// JSON payload so the envelope shape stays stable regardless of the
// payload's contents.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Payload is the JSON document carried in a successful Response body.
type Payload struct {
	Message   string `json:"message"`
	Service   string `json:"service"`
	Table     string `json:"table,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
