package handler

import "carbonmint/internal/verification/models"

// FulfillRequest is the verifier callback body. An empty error marks success.
type FulfillRequest struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

func (r *FulfillRequest) toModel() models.Fulfillment {
	return models.Fulfillment{Response: r.Response, Error: r.Error}
}
