package spawn

import (
	"fmt"
	"strings"

	"crossover.world/internal/sim/catalogs"
)

// substituteVariables replaces ${name} references in a template string with
// the value bound to name. Unbound references are left as-is so a missing
// variable is visible rather than silently blank.
func substituteVariables(s string, vars map[string]any) string {
	if len(vars) == 0 || !strings.Contains(s, "${") {
		return s
	}
	var b strings.Builder
	for {
		i := strings.Index(s, "${")
		if i < 0 {
			b.WriteString(s)
			break
		}
		j := strings.Index(s[i:], "}")
		if j < 0 {
			b.WriteString(s)
			break
		}
		name := s[i+2 : i+j]
		b.WriteString(s[:i])
		if v, ok := vars[name]; ok {
			b.WriteString(fmt.Sprint(v))
		} else {
			b.WriteString(s[i : i+j+1])
		}
		s = s[i+j+1:]
	}
	return b.String()
}

// parseItemVariables filters the supplied variables down to those the prop
// declares and checks each against its declared type. Undeclared names are
// dropped; a declared name with the wrong type is an error.
func parseItemVariables(vars map[string]any, prop catalogs.PropDef) (map[string]any, error) {
	if len(prop.Variables) == 0 {
		return nil, nil
	}
	out := map[string]any{}
	for name, def := range prop.Variables {
		v, ok := vars[name]
		if !ok {
			out[name] = def.Value
			continue
		}
		switch def.Type {
		case "string":
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("prop %s: variable %s must be a string", prop.Prop, name)
			}
			out[name] = s
		case "number":
			switch n := v.(type) {
			case float64:
				out[name] = n
			case int:
				out[name] = float64(n)
			default:
				return nil, fmt.Errorf("prop %s: variable %s must be a number", prop.Prop, name)
			}
		case "boolean":
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("prop %s: variable %s must be a boolean", prop.Prop, name)
			}
			out[name] = b
		default:
			return nil, fmt.Errorf("prop %s: variable %s has unknown type %q", prop.Prop, name, def.Type)
		}
	}
	return out, nil
}

// mergeAdditive sums two skill maps.
func mergeAdditive(extra, base map[string]int) map[string]int {
	if len(extra) == 0 {
		return base
	}
	out := make(map[string]int, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] += v
	}
	return out
}
