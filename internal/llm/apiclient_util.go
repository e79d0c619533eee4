package llm

import "encoding/json"

// parseJSONSchema converts a JSON schema string to a map for request bodies.
func parseJSONSchema(schemaStr string) map[string]interface{} {
	if schemaStr == "" {
		return nil
	}

	var schema map[string]interface{}
	if err := json.Unmarshal([]byte(schemaStr), &schema); err != nil {
		// If parsing fails, return nil - the API will reject it with a clear error
		return nil
	}

	return schema
}
