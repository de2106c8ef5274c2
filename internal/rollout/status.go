package rollout

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/minertopia/rollout/internal/domain"
	"github.com/minertopia/rollout/internal/plan"
)

type State string

const (
	StatePending  State = "PENDING"
	StateDeployed State = "DEPLOYED"
	StateWired    State = "WIRED"
)

// StepStatus is where one contract stands in the rollout.
type StepStatus struct {
	Name    domain.Name `json:"name" yaml:"name"`
	Kind    string      `json:"kind" yaml:"kind"`
	State   State       `json:"state" yaml:"state"`
	Address string      `json:"address,omitempty" yaml:"address,omitempty"`
	Wired   []string    `json:"wired,omitempty" yaml:"wired,omitempty"`
	Pending []string    `json:"pending,omitempty" yaml:"pending,omitempty"`
}

// Status derives the state of every planned contract from the persisted record
// and wiring journal. A contract with no setup calls is done once deployed and
// reports DEPLOYED.
func Status(rec domain.Record, journal map[string]common.Hash, p plan.Plan) []StepStatus {
	calls := make(map[domain.Name][]string)
	for _, call := range p.Wire {
		calls[call.Name] = append(calls[call.Name], call.ID())
	}

	out := make([]StepStatus, 0, len(p.Deploy))
	for _, step := range p.Deploy {
		st := StepStatus{
			Name:  step.Name,
			Kind:  step.Kind.String(),
			State: StatePending,
		}

		addr, ok := rec.Address(step.Name)
		if !ok {
			st.Pending = calls[step.Name]
			out = append(out, st)
			continue
		}

		st.Address = addr.Hex()
		st.State = StateDeployed
		for _, id := range calls[step.Name] {
			if _, done := journal[id]; done {
				st.Wired = append(st.Wired, id)
			} else {
				st.Pending = append(st.Pending, id)
			}
		}
		if len(st.Wired) > 0 && len(st.Pending) == 0 {
			st.State = StateWired
		}

		out = append(out, st)
	}

	return out
}
