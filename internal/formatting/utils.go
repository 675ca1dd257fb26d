package formatting

import (
	"github.com/giantswarm/conductor/internal/container"
	"github.com/giantswarm/conductor/internal/services"
)

// StatusRow is the serialised form of a controller status.
type StatusRow struct {
	Name              string   `json:"name" yaml:"name"`
	Aliases           []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Mode              string   `json:"mode" yaml:"mode"`
	State             string   `json:"state" yaml:"state"`
	Missing           int      `json:"missingDependencies" yaml:"missingDependencies"`
	Failed            int      `json:"failedDependencies" yaml:"failedDependencies"`
	RunningDependents int      `json:"runningDependents" yaml:"runningDependents"`
	Error             string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// PlanDoc is the serialised form of a plan.
type PlanDoc struct {
	Order      []string `json:"startOrder" yaml:"startOrder"`
	Unresolved []string `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
}

// ToRows converts controller statuses into serialisable rows.
func ToRows(statuses []container.ControllerStatus) []StatusRow {
	rows := make([]StatusRow, len(statuses))
	for i, st := range statuses {
		row := StatusRow{
			Name:              st.Name.String(),
			Mode:              st.Mode.String(),
			State:             st.State.String(),
			Missing:           st.MissingDependencies,
			Failed:            st.FailedDependencies,
			RunningDependents: st.RunningDependents,
		}
		for _, a := range st.Aliases {
			row.Aliases = append(row.Aliases, a.String())
		}
		if st.StartError != nil {
			row.Error = st.StartError.Error()
		}
		rows[i] = row
	}
	return rows
}

// ToPlanDoc converts a plan into its serialisable form.
func ToPlanDoc(plan services.Plan) PlanDoc {
	doc := PlanDoc{Order: make([]string, len(plan.Order))}
	for i, n := range plan.Order {
		doc.Order[i] = n.String()
	}
	for _, n := range plan.Unresolved {
		doc.Unresolved = append(doc.Unresolved, n.String())
	}
	return doc
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
