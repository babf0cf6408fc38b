package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// LineErrors is the detail payload of a site save refused by its allocation. Lines holds
// one entry per failing allocation line, in input order.
type LineErrors struct {
	Rejected int        `json:"rejected"`
	Lines    []APIError `json:"lines"`
}
