package broadcasts

import (
	"strconv"
	"strings"
)

// Fields holds the request values substituted into a broadcast template.
type Fields struct {
	Service string
	Area    string
	Urgency string
	Version int
}

// Render substitutes request fields into a template body. Placeholders use
// curly-brace names: {service}, {area}, {urgency}, {version}. Unknown
// placeholders pass through unchanged so template problems stay visible in
// the preview.
func Render(template string, f Fields) string {
	r := strings.NewReplacer(
		"{service}", f.Service,
		"{area}", f.Area,
		"{urgency}", f.Urgency,
		"{version}", strconv.Itoa(f.Version),
	)
	return r.Replace(template)
}
