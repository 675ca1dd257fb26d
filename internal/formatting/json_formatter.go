package formatting

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/giantswarm/conductor/internal/container"
	"github.com/giantswarm/conductor/internal/services"
)

// JSONFormatter provides structured JSON output formatting
type JSONFormatter struct {
	options Options
}

// FormatStatus writes the rows as a JSON array.
func (f *JSONFormatter) FormatStatus(w io.Writer, statuses []container.ControllerStatus) error {
	return f.write(w, ToRows(statuses))
}

// FormatPlan writes the plan as a JSON object.
func (f *JSONFormatter) FormatPlan(w io.Writer, plan services.Plan) error {
	return f.write(w, ToPlanDoc(plan))
}

func (f *JSONFormatter) write(w io.Writer, v interface{}) error {
	_, err := fmt.Fprintln(w, PrettyJSON(v))
	return err
}

// PrettyJSON formats any value as indented JSON for human-readable display.
// It handles marshaling errors gracefully by falling back to fmt.Sprintf.
//
// Example:
//
//	data := map[string]interface{}{"name": "test", "value": 42}
//	fmt.Println(formatting.PrettyJSON(data))
//	// Output:
//	// {
//	//   "name": "test",
//	//   "value": 42
//	// }
func PrettyJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
