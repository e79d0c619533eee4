// Package artifact extracts generated workflows from model responses and
// writes them to disk as runnable files.
package artifact

import (
	"regexp"
	"strings"
)

var (
	codeFence = regexp.MustCompile("(?s)```python(.*?)```")
	xmlFence  = regexp.MustCompile("(?s)```xml(.*?)```")
)

// ExtractCode returns the content of the first ```python fenced block in the
// response, or "" when none is present.
func ExtractCode(response string) string {
	match := codeFence.FindStringSubmatch(response)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// ExtractXML returns the content of the first ```xml fenced block in the
// response. When the closing fence is missing it falls back to the text
// between the last ```xml marker and the last '>' after it, so a truncated
// model document is still recovered.
func ExtractXML(response string) string {
	match := xmlFence.FindStringSubmatch(response)
	if match != nil {
		return strings.TrimSpace(match[1])
	}

	start := strings.LastIndex(response, "```xml")
	if start < 0 {
		return ""
	}
	start += len("```xml")
	end := strings.LastIndex(response[start:], ">")
	if end < 0 {
		return ""
	}
	return response[start : start+end+1]
}
