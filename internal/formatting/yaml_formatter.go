package formatting

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/giantswarm/conductor/internal/container"
	"github.com/giantswarm/conductor/internal/services"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// FormatStatus writes the rows as a YAML sequence.
func (f *YAMLFormatter) FormatStatus(w io.Writer, statuses []container.ControllerStatus) error {
	return f.write(w, ToRows(statuses))
}

// FormatPlan writes the plan as a YAML mapping.
func (f *YAMLFormatter) FormatPlan(w io.Writer, plan services.Plan) error {
	return f.write(w, ToPlanDoc(plan))
}

func (f *YAMLFormatter) write(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
