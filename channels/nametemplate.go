package channels

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// maxChannelName is the platform's limit on channel names.
const maxChannelName = 100

type templateVars struct {
	DisplayName string
	UserID      string
}

type nameTemplate struct {
	tpl *template.Template
}

func newNameTemplate(text string) (*nameTemplate, error) {
	tpl, err := template.New("channel_name").Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, errors.Wrapf(err, "parse channel name template %q", text)
	}
	return &nameTemplate{tpl: tpl}, nil
}

// render never fails: a template error or an empty result falls back to
// "<name>'s Channel".
func (n *nameTemplate) render(vars templateVars) string {
	var out bytes.Buffer
	if err := n.tpl.Execute(&out, vars); err == nil {
		if name := strings.TrimSpace(out.String()); name != "" {
			return truncate(name)
		}
	}
	return truncate(fmt.Sprintf("%s's Channel", vars.DisplayName))
}

func truncate(name string) string {
	if utf8.RuneCountInString(name) <= maxChannelName {
		return name
	}
	return string([]rune(name)[:maxChannelName])
}
