package templates

import (
	"strings"

	"chandlery/internal"
)

// Render substitutes every {{key}} occurrence from vars. Keys missing from
// vars stay in place, so a half-filled template remains visibly a template.
func Render(text string, vars map[string]string) string {
	if len(vars) == 0 {
		return text
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func RenderTemplate(t internal.EmailTemplate, vars map[string]string) (string, string) {
	return Render(t.Subject, vars), Render(t.Content, vars)
}
