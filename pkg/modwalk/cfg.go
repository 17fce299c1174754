package modwalk

// Tri-state outcome of evaluating a cfg predicate. Gates we cannot decide
// (target_os, unix, anything environment-shaped) stay unknown and the gated
// subtree is kept, so real source files are never dropped silently. Only a
// definitively false gate excludes.
type tri int

const (
	triFalse tri = iota
	triTrue
	triUnknown
)

type cfgEvaluator struct {
	defaultFeatures bool
	features        map[string]bool
	flags           map[string]bool
}

func newCfgEvaluator(cfg Config) *cfgEvaluator {
	return &cfgEvaluator{
		defaultFeatures: cfg.DefaultFeatures,
		features:        cfg.featureSet(),
		flags:           cfg.flagSet(),
	}
}

// Excluded reports whether the cfg argument text (the "(...)" token tree of
// a #[cfg(...)] attribute) gates its item out of the default build.
func (e *cfgEvaluator) Excluded(argText string) bool {
	p := &cfgParser{input: argText}
	p.expect('(')
	result := e.eval(p.parsePredicate())
	return result == triFalse
}

func (e *cfgEvaluator) eval(pred *cfgPredicate) tri {
	if pred == nil {
		return triUnknown
	}

	switch pred.name {
	case "all":
		result := triTrue
		for _, arg := range pred.args {
			switch e.eval(arg) {
			case triFalse:
				return triFalse
			case triUnknown:
				result = triUnknown
			}
		}
		return result
	case "any":
		result := triFalse
		for _, arg := range pred.args {
			switch e.eval(arg) {
			case triTrue:
				return triTrue
			case triUnknown:
				result = triUnknown
			}
		}
		return result
	case "not":
		if len(pred.args) != 1 {
			return triUnknown
		}
		switch e.eval(pred.args[0]) {
		case triTrue:
			return triFalse
		case triFalse:
			return triTrue
		}
		return triUnknown
	}

	if pred.isList {
		// Unrecognized predicate function (version(), sanitize(), ...).
		return triUnknown
	}

	if pred.hasValue {
		return e.evalKeyValue(pred.name, pred.value)
	}
	return e.evalIdent(pred.name)
}

func (e *cfgEvaluator) evalKeyValue(key, value string) tri {
	if key != "feature" {
		// target_os, target_arch, target_family, ... depend on the build
		// platform, which the walker is not told about.
		return triUnknown
	}
	if e.features[value] {
		return triTrue
	}
	if e.defaultFeatures {
		// The feature may be part of the crate's default set; we cannot
		// rule it out without resolving the full feature graph.
		return triUnknown
	}
	return triFalse
}

func (e *cfgEvaluator) evalIdent(name string) tri {
	if e.flags[name] {
		return triTrue
	}
	switch name {
	case "test", "doctest":
		// These are off for every target kind we walk; cargo compiles test
		// harnesses from their own entry files.
		return triFalse
	}
	return triUnknown
}

// cfgPredicate is the parsed shape of one cfg predicate: an ident, an
// ident = "value" pair, or an ident(...) list.
type cfgPredicate struct {
	name     string
	value    string
	hasValue bool
	isList   bool
	args     []*cfgPredicate
}

type cfgParser struct {
	input string
	pos   int
}

func (p *cfgParser) parsePredicate() *cfgPredicate {
	name, ok := p.ident()
	if !ok {
		return nil
	}
	pred := &cfgPredicate{name: name}

	switch p.peek() {
	case '(':
		p.pos++
		pred.isList = true
		for {
			p.skipSpace()
			if p.peek() == ')' {
				p.pos++
				break
			}
			arg := p.parsePredicate()
			if arg == nil {
				p.skipToClose()
				break
			}
			pred.args = append(pred.args, arg)
			p.skipSpace()
			if p.peek() == ',' {
				p.pos++
			}
		}
	case '=':
		p.pos++
		pred.value, pred.hasValue = p.stringLit()
	}

	return pred
}

func (p *cfgParser) expect(c byte) {
	p.skipSpace()
	if p.peek() == c {
		p.pos++
	}
}

func (p *cfgParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *cfgParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t' || p.input[p.pos] == '\n' || p.input[p.pos] == '\r') {
		p.pos++
	}
}

func (p *cfgParser) ident() (string, bool) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) && isIdentByte(p.input[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", false
	}
	return p.input[start:p.pos], true
}

func (p *cfgParser) stringLit() (string, bool) {
	p.skipSpace()
	if p.pos >= len(p.input) || p.input[p.pos] != '"' {
		return "", false
	}
	p.pos++
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != '"' {
		p.pos++
	}
	value := p.input[start:p.pos]
	if p.pos < len(p.input) {
		p.pos++
	}
	return value, true
}

func (p *cfgParser) skipToClose() {
	depth := 1
	for p.pos < len(p.input) && depth > 0 {
		switch p.input[p.pos] {
		case '(':
			depth++
		case ')':
			depth--
		}
		p.pos++
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
