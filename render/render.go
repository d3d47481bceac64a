package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/kevinburke/ssh_config"
	"go.uber.org/zap"

	"ec2sshconfig/errors"
	"ec2sshconfig/generator"
	genm "ec2sshconfig/generator/models"
)

const (
	packageName = "render"
)

const configTemplate = `### Generated SSH Config from AWS ###
## Hosts: {{ summary .Result.Summary }}
{{ range .Result.Groups }}
## {{ header .Environment }} ##
{{ range .Hosts }}
Host {{ .Label }}
{{- if $.StrictHostKeyChecking }}
  StrictHostKeyChecking {{ $.StrictHostKeyChecking }}
{{- end }}
  HostName {{ .Address }}
  User {{ .User }}
{{- if .ProxyCommand }}
  ProxyCommand {{ .ProxyCommand }}
{{- end }}
{{- if .DynamicForward }}
  DynamicForward {{ .DynamicForward }}
{{- end }}
  IdentityFile {{ .IdentityFile }}
{{ end }}{{ end }}`

// emittedKeys are the only directives Render writes, lower cased
var emittedKeys = map[string]bool{
	"stricthostkeychecking": true,
	"hostname":              true,
	"user":                  true,
	"proxycommand":          true,
	"dynamicforward":        true,
	"identityfile":          true,
}

var proxyCommand = regexp.MustCompile(`^ssh -q [A-Za-z0-9][A-Za-z0-9._@:-]* nc %h 22$`)

var tmpl = template.Must(template.New("ssh_config").Funcs(template.FuncMap{
	"summary": formatSummary,
	"header":  groupHeader,
}).Parse(configTemplate))

// Options tune the emitted stanzas
type Options struct {
	// StrictHostKeyChecking is emitted on every host when non-empty
	StrictHostKeyChecking string
}

type templateData struct {
	Result                *genm.Result
	StrictHostKeyChecking string
}

// Render projects the arranged result into SSH client config text
func Render(result *genm.Result, opts Options) (string, error) {
	buf := &bytes.Buffer{}
	err := tmpl.Execute(buf, templateData{
		Result:                result,
		StrictHostKeyChecking: opts.StrictHostKeyChecking,
	})
	if err != nil {
		return "", errors.New(errors.ErrRender, "failed to render ssh config", nil, err)
	}
	return buf.String(), nil
}

// Validate parses text back as an SSH config and checks it holds exactly
// want host blocks. Each block must have a single plain label, a HostName and
// only the directives Render emits; a ProxyCommand must be the jump host form.
func Validate(text string, want int) error {
	logger := zap.L().With(
		zap.String("package", packageName),
		zap.String("function", "Validate"),
	)

	cfg, err := ssh_config.Decode(strings.NewReader(text))
	if err != nil {
		return errors.New(errors.ErrRender, "generated ssh config does not parse", nil, err)
	}

	hosts := 0
	for _, host := range cfg.Hosts {
		implicit := isImplicit(host)
		if !implicit {
			hosts++
			if len(host.Patterns) != 1 || !generator.IsSSHToken(host.Patterns[0].String()) {
				return invalidHost(host, "host block without a single plain label", nil)
			}
		}

		hasHostName := false
		for _, node := range host.Nodes {
			switch n := node.(type) {
			case *ssh_config.Empty:
			case *ssh_config.KV:
				key := strings.ToLower(n.Key)
				if implicit || !emittedKeys[key] {
					return invalidHost(host, "unexpected directive", fmt.Errorf("directive %q", n.Key))
				}
				if key == "hostname" && n.Value != "" {
					hasHostName = true
				}
				if key == "proxycommand" && !proxyCommand.MatchString(n.Value) {
					return invalidHost(host, "unexpected ProxyCommand", fmt.Errorf("proxy command %q", n.Value))
				}
			default:
				return invalidHost(host, "unexpected directive", fmt.Errorf("node %q", node.String()))
			}
		}
		if !implicit && !hasHostName {
			return invalidHost(host, "host block without HostName", nil)
		}
	}

	if hosts != want {
		return errors.New(errors.ErrRender, "generated ssh config host count mismatch",
			map[string]interface{}{
				"want": want,
				"got":  hosts,
			}, fmt.Errorf("want %d host blocks, parsed %d", want, hosts))
	}

	logger.Debug("Generated ssh config validated",
		zap.String("operation", "render_validation"),
		zap.Int("host_count", hosts),
	)
	return nil
}

func invalidHost(host *ssh_config.Host, message string, err error) error {
	return errors.New(errors.ErrRender, message,
		map[string]interface{}{
			"host": patterns(host),
		}, err)
}

// formatSummary prints the total followed by per-environment counts in group order
func formatSummary(s genm.Summary) string {
	if len(s.ByEnvironment) == 0 {
		return fmt.Sprintf("%d", s.Total)
	}
	parts := make([]string, 0, len(s.ByEnvironment))
	for _, c := range s.ByEnvironment {
		parts = append(parts, fmt.Sprintf("%s: %d", c.Environment, c.Count))
	}
	return fmt.Sprintf("%d (%s)", s.Total, strings.Join(parts, ", "))
}

func groupHeader(env string) string {
	if env == generator.BastionEnvironment {
		return "Bastion Hosts"
	}
	return env
}

func isImplicit(host *ssh_config.Host) bool {
	return len(host.Patterns) == 1 && host.Patterns[0].String() == "*"
}

func patterns(host *ssh_config.Host) string {
	out := make([]string, 0, len(host.Patterns))
	for _, p := range host.Patterns {
		out = append(out, p.String())
	}
	return strings.Join(out, " ")
}
