package similarity

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Class is the closed set of outcomes every remote call is reduced to.
type Class int

const (
	ClassTransportFailure Class = iota
	ClassCreated
	ClassAccepted
	ClassCompleteStatus
	ClassLegalBlock
	ClassOtherStatus
)

// StatusUnavailableForLegalReasons is returned when the submitter has not accepted the EULA.
const StatusUnavailableForLegalReasons = http.StatusUnavailableForLegalReasons

// RemoteStatusComplete is the body status signalling a finished upload or report.
const RemoteStatusComplete = "COMPLETE"

func (c Class) String() string {
	switch c {
	case ClassCreated:
		return "created"
	case ClassAccepted:
		return "accepted"
	case ClassCompleteStatus:
		return "complete_status"
	case ClassLegalBlock:
		return "legal_block"
	case ClassOtherStatus:
		return "other_status"
	default:
		return "transport_failure"
	}
}

type statusEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Classify maps a call outcome onto Class.
func Classify(resp *Response, err error) Class {
	if err != nil || resp == nil {
		return ClassTransportFailure
	}
	switch resp.StatusCode {
	case http.StatusCreated:
		return ClassCreated
	case http.StatusAccepted:
		return ClassAccepted
	case StatusUnavailableForLegalReasons:
		return ClassLegalBlock
	}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		var env statusEnvelope
		if json.Unmarshal(resp.Body, &env) == nil && strings.EqualFold(env.Status, RemoteStatusComplete) {
			return ClassCompleteStatus
		}
	}
	return ClassOtherStatus
}

// Success reports whether the response carries a 2xx status.
func (r *Response) Success() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode <= 299
}

// Decode unmarshals the response body into dest.
func (r *Response) Decode(dest interface{}) error {
	return json.Unmarshal(r.Body, dest)
}

// Message extracts the human readable error message returned by the service,
// falling back to the HTTP status text.
func (r *Response) Message() string {
	if r == nil {
		return ""
	}
	var env statusEnvelope
	if json.Unmarshal(r.Body, &env) == nil && env.Message != "" {
		return env.Message
	}
	if text := http.StatusText(r.StatusCode); text != "" {
		return text
	}
	return "unexpected response from similarity service"
}
