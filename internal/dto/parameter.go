package dto

import "time"

// ParameterItem represents a parameter exposed via the admin API.
type ParameterItem struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Value       string    `json:"value"`
	Scope       string    `json:"scope"`
	Version     int64     `json:"version"`
	EffectiveAt time.Time `json:"effective_at"`
}

// UpdateParameterRequest creates or replaces a single parameter.
type UpdateParameterRequest struct {
	Type  string `json:"type" validate:"required,oneof=weight price limit config"`
	Value string `json:"value" validate:"required"`
	Scope string `json:"scope"`
}

// UpdateWeightsRequest replaces all three matching weights at once.
type UpdateWeightsRequest struct {
	Rating   *int `json:"rating" validate:"required,min=0,max=100"`
	Interest *int `json:"interest" validate:"required,min=0,max=100"`
	Style    *int `json:"style" validate:"required,min=0,max=100"`
}
