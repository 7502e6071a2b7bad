package domain

// URLResult is what checkout-style entry points return: a success flag, an
// approval URL to redirect the buyer to, and a human-readable message.
// Failures are carried in the message, never as a raw error to the caller.
type URLResult struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message"`
}

// RedirectResult is what confirmation entry points return after the buyer
// comes back from the gateway.
type RedirectResult struct {
	Success  bool   `json:"success"`
	Response any    `json:"response,omitempty"`
	Redirect string `json:"redirect"`
}
