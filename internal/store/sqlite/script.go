package sqlite

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/giyikalim/smart-notes/internal/query"
)

type assignment struct {
	field string
	value any
}

var assignRe = regexp.MustCompile(`^ctx\._source\.([A-Za-z0-9_.]+)\s*=\s*params\.([A-Za-z0-9_]+)$`)

// parseScript accepts semicolon-separated statements of the form
// "ctx._source.<field> = params.<name>".
func parseScript(s query.Script) ([]assignment, error) {
	if s.Lang != "" && s.Lang != "painless" {
		return nil, fmt.Errorf("sqlite: unsupported script language %q", s.Lang)
	}
	var out []assignment
	for _, stmt := range strings.Split(s.Source, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		m := assignRe.FindStringSubmatch(stmt)
		if m == nil {
			return nil, fmt.Errorf("sqlite: unsupported script statement %q", stmt)
		}
		v, ok := s.Params[m[2]]
		if !ok {
			return nil, fmt.Errorf("sqlite: script param %q missing", m[2])
		}
		out = append(out, assignment{field: m[1], value: normalize(v)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("sqlite: empty script")
	}
	return out, nil
}
