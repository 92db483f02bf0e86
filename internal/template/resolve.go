package template

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	darkwallerrors "github.com/veighnsche/darkwall-comfyui/internal/errors"
)

var (
	wildcardRe = regexp.MustCompile(`__([a-z0-9_/]+)__`)
	variantRe  = regexp.MustCompile(`\{([^{}]*)\}`)
	combinedRe = regexp.MustCompile(`__([a-z0-9_/]+)__|\{([^{}]*)\}`)
)

// AtomSelector resolves an atom reference to a concrete string. It is
// satisfied by *atoms.Store, kept as an interface here so this package
// has no import-time dependency on the atoms package's internals.
type AtomSelector interface {
	Select(name string, rng *rand.Rand) (string, error)
}

// Resolve resolves every declared section of tmpl into a PromptResult,
// using baseSeed to derive one PRNG per section per spec.md §4.3.
func Resolve(tmpl *Template, baseSeed uint64, store AtomSelector) (*PromptResult, error) {
	result := &PromptResult{
		Prompts:   make(map[string]string),
		Negatives: make(map[string]string),
		Seed:      baseSeed,
	}

	for _, name := range tmpl.Sections() {
		rng := rand.New(rand.NewPCG(SectionSeed(baseSeed, name), SectionSeed(baseSeed, name)>>1|1))
		resolved, err := resolveSection(tmpl.Name, name, tmpl.sections[name], rng, store)
		if err != nil {
			return nil, err
		}
		if strings.HasSuffix(name, ":negative") {
			base := strings.TrimSuffix(name, ":negative")
			result.Negatives[base] = resolved
		} else {
			result.Prompts[name] = resolved
		}
	}

	return result, nil
}

// resolveSection repeatedly substitutes wildcard and variant constructs
// until none remain or MaxIterations passes have run.
func resolveSection(templateName, sectionName, text string, rng *rand.Rand, store AtomSelector) (string, error) {
	for i := 0; i < MaxIterations; i++ {
		if !combinedRe.MatchString(text) {
			return text, nil
		}

		var substitutionErr error
		next := combinedRe.ReplaceAllStringFunc(text, func(match string) string {
			if substitutionErr != nil {
				return match
			}
			sub := combinedRe.FindStringSubmatch(match)
			if sub[1] != "" {
				// __name__ wildcard
				val, err := store.Select(sub[1], rng)
				if err != nil {
					substitutionErr = err
					return match
				}
				return val
			}
			// {a|b|c} variant
			val, err := resolveVariant(templateName, sectionName, sub[2], rng)
			if err != nil {
				substitutionErr = err
				return match
			}
			return val
		})
		if substitutionErr != nil {
			return "", substitutionErr
		}
		text = next
	}
	return text, nil
}

type weightedAlt struct {
	weight float64
	text   string
}

func resolveVariant(templateName, sectionName, body string, rng *rand.Rand) (string, error) {
	rawAlts := strings.Split(body, "|")
	if len(rawAlts) == 0 {
		return "", &darkwallerrors.TemplateSyntax{Template: templateName, Reason: "empty variant in section " + sectionName}
	}

	alts := make([]weightedAlt, 0, len(rawAlts))
	for _, raw := range rawAlts {
		weight := 1.0
		text := raw
		if idx := strings.Index(raw, "::"); idx >= 0 {
			weightStr := raw[:idx]
			parsed, err := strconv.ParseFloat(weightStr, 64)
			if err != nil || parsed <= 0 {
				return "", &darkwallerrors.TemplateSyntax{Template: templateName, Reason: "invalid weight " + weightStr + " in section " + sectionName}
			}
			weight = parsed
			text = raw[idx+2:]
		}
		alts = append(alts, weightedAlt{weight: weight, text: text})
	}

	return pickWeighted(alts, rng), nil
}

func pickWeighted(alts []weightedAlt, rng *rand.Rand) string {
	total := 0.0
	for _, a := range alts {
		total += a.weight
	}
	if total <= 0 {
		return alts[0].text
	}
	r := rng.Float64() * total
	acc := 0.0
	for _, a := range alts {
		acc += a.weight
		if r < acc {
			return a.text
		}
	}
	return alts[len(alts)-1].text
}
