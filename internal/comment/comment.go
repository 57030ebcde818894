package comment

import (
	"regexp"
	"strings"

	"compgen/internal/ranges"
)

// Annotations are the key/value tags read from a JSDoc block.
type Annotations struct {
	Description string
	// Range is the verbatim X of `@range {X}`.
	Range    string
	Defaults []ranges.Default
	Ignored  bool
	// Params holds the tags following each `@param name`.
	Params map[string]*Annotations
}

var (
	tagPattern   = regexp.MustCompile(`(?m)(?:^|\s)@([A-Za-z]+)`)
	bracePattern = regexp.MustCompile(`^\s*\{([^}]*)\}`)
)

// Parse reads a JSDoc comment. An empty comment yields empty annotations.
func Parse(text string) *Annotations {
	out := &Annotations{Params: map[string]*Annotations{}}
	body := clean(text)
	if body == "" {
		return out
	}

	locs := tagPattern.FindAllStringSubmatchIndex(body, -1)
	end := len(body)
	if len(locs) > 0 {
		end = locs[0][0]
	}
	out.Description = collapse(body[:end])

	target := out
	for i, loc := range locs {
		tag := body[loc[2]:loc[3]]
		valueEnd := len(body)
		if i+1 < len(locs) {
			valueEnd = locs[i+1][0]
		}
		value := strings.TrimSpace(body[loc[1]:valueEnd])

		switch tag {
		case "param":
			name, rest := paramName(value)
			if name == "" {
				continue
			}
			target = &Annotations{Description: rest, Params: map[string]*Annotations{}}
			out.Params[name] = target
		case "range":
			if v, ok := braced(value); ok {
				target.Range = v
			}
		case "default":
			if v, ok := braced(value); ok {
				target.Defaults = append(target.Defaults, parseDefault(v))
			}
		case "ignored":
			target.Ignored = true
		}
	}
	return out
}

// Param returns the annotations of a named parameter, never nil.
func (a *Annotations) Param(name string) *Annotations {
	if p, ok := a.Params[name]; ok {
		return p
	}
	return &Annotations{Params: map[string]*Annotations{}}
}

// Merge returns a copy of a where every tag set in b wins.
func (a *Annotations) Merge(b *Annotations) *Annotations {
	out := *a
	if b == nil {
		return &out
	}
	if b.Description != "" {
		out.Description = b.Description
	}
	if b.Range != "" {
		out.Range = b.Range
	}
	if len(b.Defaults) > 0 {
		out.Defaults = b.Defaults
	}
	out.Ignored = a.Ignored || b.Ignored
	return &out
}

func clean(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "/**")
	text = strings.TrimSuffix(text, "*/")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func paramName(value string) (name, rest string) {
	// `@param {Type} name` is accepted as well
	if m := bracePattern.FindStringIndex(value); m != nil {
		value = strings.TrimSpace(value[m[1]:])
	}
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return "", ""
	}
	name = strings.Trim(fields[0], "[]")
	if i := strings.IndexByte(name, '='); i >= 0 {
		name = name[:i]
	}
	rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value[len(fields[0]):]), "-"))
	return name, collapse(rest)
}

func braced(value string) (string, bool) {
	m := bracePattern.FindStringSubmatch(value)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func parseDefault(v string) ranges.Default {
	if strings.HasPrefix(v, "<") && strings.HasSuffix(v, ">") {
		return ranges.Default{Kind: ranges.DefaultIRI, Value: v[1 : len(v)-1]}
	}
	return ranges.Default{Kind: ranges.DefaultRaw, Value: v}
}
