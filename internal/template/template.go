// Package template implements the multi-section prompt document parser
// and the wildcard/variant substitution engine of spec.md §4.3 and the
// bit-exact grammar of §6.3.
//
// The grammar is regular, not context-free, so a scanner built on
// regexp plus manual line splitting is the idiomatic Go approach here
// — the same style the teacher uses in its own hand-rolled
// micro-format parsers for bespoke line-oriented formats.
package template

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	darkwallerrors "github.com/veighnsche/darkwall-comfyui/internal/errors"
)

// MaxIterations bounds repeated substitution passes against
// pathological self-referential atom files, per spec.md §9.
const MaxIterations = 32

var sectionMarkerRe = regexp.MustCompile(`^[a-z0-9_]+(:negative)?$`)

// Template is a parsed prompt document: an ordered set of named
// sections plus, for each, the raw (unsubstituted) body text.
type Template struct {
	Name     string
	order    []string
	sections map[string]string
}

// Sections returns the section names in declaration order.
func (t *Template) Sections() []string {
	return append([]string(nil), t.order...)
}

// Parse splits content into sections per spec.md §4.3/§6.3. Comments
// (lines whose trimmed content starts with '#') are dropped; blank
// lines within a section's content are preserved.
func Parse(templateName, content string) (*Template, error) {
	tmpl := &Template{Name: templateName, sections: make(map[string]string)}

	lines := strings.Split(content, "\n")
	current := "positive"
	var buf []string
	declared := map[string]bool{}

	flush := func() {
		text := strings.Join(buf, "\n")
		if existing, ok := tmpl.sections[current]; ok {
			if existing != "" {
				text = existing + "\n" + text
			}
			tmpl.sections[current] = text
		} else {
			tmpl.sections[current] = text
			tmpl.order = append(tmpl.order, current)
		}
		buf = nil
	}

	for i, rawLine := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(rawLine)

		if name, ok := parseSectionMarker(trimmed); ok {
			canonical := canonicalSectionName(name)
			base := strings.TrimSuffix(canonical, ":negative")
			if !sectionMarkerRe.MatchString(canonical) {
				return nil, &darkwallerrors.TemplateSyntax{Template: templateName, Line: lineNo, Reason: fmt.Sprintf("illegal section name %q", name)}
			}
			if !strings.HasSuffix(canonical, ":negative") && declared[base] {
				return nil, &darkwallerrors.TemplateSyntax{Template: templateName, Line: lineNo, Reason: fmt.Sprintf("duplicate section %q", base)}
			}
			flush()
			current = canonical
			if !strings.HasSuffix(canonical, ":negative") {
				declared[canonical] = true
			}
			continue
		}

		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		buf = append(buf, rawLine)
	}
	flush()

	return tmpl, nil
}

// parseSectionMarker reports whether trimmed is a bare section marker
// line ("$$<name>$$") and, if so, returns the name.
func parseSectionMarker(trimmed string) (string, bool) {
	if !strings.HasPrefix(trimmed, "$$") || !strings.HasSuffix(trimmed, "$$") || len(trimmed) <= 4 {
		return "", false
	}
	name := trimmed[2 : len(trimmed)-2]
	if name == "" {
		return "", false
	}
	return name, true
}

// canonicalSectionName applies the "negative" alias: a bare "negative"
// marker means "positive:negative".
func canonicalSectionName(name string) string {
	if name == "negative" {
		return "positive:negative"
	}
	return name
}

// PromptResult is the output of template resolution: per-section
// resolved positive and negative strings, plus the seed used.
type PromptResult struct {
	Prompts   map[string]string
	Negatives map[string]string
	Seed      uint64
}

// SectionSeed combines the base seed with a stable hash of the section
// name so that different sections draw independently while the whole
// resolution stays reproducible, per spec.md §4.3 and the Open
// Question resolution in §9: seed ^ FNV-1a(sectionName).
func SectionSeed(baseSeed uint64, sectionName string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sectionName))
	return baseSeed ^ h.Sum64()
}
