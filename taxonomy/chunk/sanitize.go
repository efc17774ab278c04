package chunk

import "strings"

// Sanitize strips code-fence markers (an opening fence optionally tagged
// json, and closing fences) and surrounding whitespace from model output.
// Text without fences passes through apart from trimming. Sanitize is
// idempotent.
func Sanitize(text string) string {
	// Fences are removed anywhere, including inside string values, so output
	// matches what earlier versions of the generator exported.
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}
