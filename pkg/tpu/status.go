package tpu

import (
	"context"
	"encoding/json"

	eoerrors "github.com/erfanzar/eopod/errors"
)

// NetworkEndpoint is one worker's network identity from the describe
// document.
type NetworkEndpoint struct {
	IPAddress    string `json:"ipAddress"`
	AccessConfig struct {
		ExternalIP string `json:"externalIp"`
	} `json:"accessConfig"`
}

// Status is the subset of the TPU describe document this tool reads.
type Status struct {
	Name             string            `json:"name"`
	State            string            `json:"state"`
	AcceleratorType  string            `json:"acceleratorType"`
	Network          string            `json:"network"`
	APIVersion       string            `json:"apiVersion"`
	NetworkEndpoints []NetworkEndpoint `json:"networkEndpoints"`
}

// WorkerCount returns the number of workers (one per network endpoint).
func (s *Status) WorkerCount() int {
	return len(s.NetworkEndpoints)
}

// Manager runs higher-level operations against one target through a client.
type Manager struct {
	target Target
	client Client
}

// NewManager creates a manager for the given target.
func NewManager(target Target, client Client) *Manager {
	return &Manager{target: target, client: client}
}

// Target returns the manager's target identity.
func (m *Manager) Target() Target {
	return m.target
}

// Status fetches and parses the target's describe document.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	data, err := m.client.Describe(ctx, m.target)
	if err != nil {
		return nil, err
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, eoerrors.Wrap(err, eoerrors.ErrRemote, "failed to parse TPU status")
	}
	return &st, nil
}

// Workers returns the indices of all workers of the target.
func (m *Manager) Workers(ctx context.Context) ([]int, error) {
	st, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	workers := make([]int, st.WorkerCount())
	for i := range workers {
		workers[i] = i
	}
	return workers, nil
}
