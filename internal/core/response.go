package core

import "swimeeter/pkg/domain"

// Response is the envelope handed to the boundary layer: either Data on
// success or a Reason with an HTTP-equivalent Status.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Status  int    `json:"status"`
}

// Respond builds the envelope for an operation outcome.
func Respond(data any, err error) Response {
	if err != nil {
		return Response{Reason: err.Error(), Status: domain.StatusCode(err)}
	}
	return Response{Success: true, Data: data, Status: domain.StatusOK}
}
