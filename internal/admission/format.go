package admission

// responseFormatAliases maps the OpenAI-compatible response_format
// values onto this service's native output_format vocabulary (§4
// supplemented feature). response_format, when present, always wins
// over output_format.
var responseFormatAliases = map[string]string{
	"verbose_json": "json",
	"text":         "txt",
	// vtt has no native renderer; srt is the closest structural match
	// (both are cue-numbered, timestamped subtitle formats) and is
	// what the original service aliased it to.
	"vtt": "srt",
}

// ResolveOutputFormat implements the response_format/output_format
// precedence rule: response_format, if given, is translated through
// the OpenAI alias table and wins; otherwise outputFormat is used
// as-is, defaulting to "json".
func ResolveOutputFormat(responseFormat, outputFormat string) string {
	if responseFormat != "" {
		if mapped, ok := responseFormatAliases[responseFormat]; ok {
			return mapped
		}
		return responseFormat
	}
	if outputFormat == "" {
		return "json"
	}
	return outputFormat
}
