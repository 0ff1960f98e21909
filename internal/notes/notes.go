// Package notes builds release notes from the commit window: a markdown
// document listing the commit summaries, pip install instructions for the
// bare version, and static documentation links. Rendering is pure; the same
// input always yields the same text.
package notes

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"shipwright/internal/version"
)

// Link is a titled documentation link.
type Link struct {
	Title string
	URL   string
}

// Input is everything the notes depend on.
type Input struct {
	Package       string
	Target        version.Version
	Prior         version.Version
	Commits       []string
	Links         []Link
	RepositoryURL string
}

// Title returns the release title.
func Title(in Input) string {
	if name := strings.TrimSpace(in.Package); name != "" {
		return fmt.Sprintf("%s %s", name, in.Target.Tag())
	}
	return in.Target.Tag()
}

const notesTemplate = `## What's Changed
{{ if .Commits }}
{{- range .Commits }}
- {{ . }}
{{- end }}
{{ else }}
- No changes recorded.
{{ end }}
## Installation

` + "```bash" + `
pip install {{ .Package }}=={{ .Target.Number }}
` + "```" + `
{{- if .CompareURL }}

**Full changelog**: {{ .CompareURL }}
{{- end }}
{{- if .Links }}

## Documentation
{{ range .Links }}
- [{{ .Title }}]({{ .URL }})
{{- end }}
{{- end }}
`

var tmpl = template.Must(template.New("notes").Parse(notesTemplate))

type view struct {
	Input
	CompareURL string
}

// Build renders the release notes markdown.
func Build(in Input) (string, error) {
	v := view{Input: in}
	v.Commits = cleanCommits(in.Commits)
	v.Links = cleanLinks(in.Links)
	if repo := strings.TrimRight(strings.TrimSpace(in.RepositoryURL), "/"); repo != "" && !in.Prior.IsNone() {
		v.CompareURL = fmt.Sprintf("%s/compare/%s...%s", repo, in.Prior.Tag(), in.Target.Tag())
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render release notes: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n") + "\n", nil
}

func cleanCommits(commits []string) []string {
	out := make([]string, 0, len(commits))
	for _, c := range commits {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func cleanLinks(links []Link) []Link {
	out := make([]Link, 0, len(links))
	for _, l := range links {
		l.URL = strings.TrimSpace(l.URL)
		if l.URL == "" {
			continue
		}
		if l.Title = strings.TrimSpace(l.Title); l.Title == "" {
			l.Title = l.URL
		}
		out = append(out, l)
	}
	return out
}
