package model

import "time"

// Probes reports the liveness of backing dependencies, used by the health endpoint.
type Probes []*Status

// Status is the health of a single backing dependency.
type Status struct {
	Name      string    `json:"name,omitempty"`
	Healthy   bool      `json:"healthy"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Check returns the first unhealthy status, or an overall-healthy status if none are down.
func (p Probes) Check(name string) *Status {
	for _, status := range p {
		if status == nil {
			continue
		}
		if !status.Healthy {
			return status
		}
	}
	return &Status{
		Name:      name,
		Healthy:   true,
		Timestamp: time.Now(),
	}
}
