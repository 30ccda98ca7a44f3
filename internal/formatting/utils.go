package formatting

import (
	"encoding/json"
	"fmt"
)

// PrettyJSON formats any value as indented JSON for human-readable display.
// It falls back to fmt.Sprintf when the value cannot be marshaled.
//
// Example:
//
//	data := map[string]interface{}{"feed": "tasks", "created": 2}
//	fmt.Println(formatting.PrettyJSON(data))
//	// Output:
//	// {
//	//   "created": 2,
//	//   "feed": "tasks"
//	// }
func PrettyJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
