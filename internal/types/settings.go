package types

import "github.com/pkg/errors"

// PutExecutionModePayload is the body of PUT /api/v1/settings/execution-mode.
type PutExecutionModePayload struct {
	Simulated *bool `json:"simulated"`
}

// Validate requires the flag to be explicit; flipping between spending real
// funds and not must never happen by omission.
func (p *PutExecutionModePayload) Validate() error {
	if p.Simulated == nil {
		return errors.New("simulated is required")
	}
	return nil
}

// ExecutionModeResponse is the body of GET /api/v1/settings/execution-mode.
type ExecutionModeResponse struct {
	Simulated bool `json:"simulated"`
}
