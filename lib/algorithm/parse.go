// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"fmt"
	"strings"
)

// Outcome is the result of parsing one node of the command tree:
// either a delegation of the remaining tokens to a child, or the
// algorithm that consumed them.
type Outcome struct {
	next     Algorithm
	args     []string
	resolved Algorithm
}

// Delegate hands args to child.
func Delegate(child Algorithm, args []string) Outcome {
	return Outcome{next: child, args: args}
}

// Resolved reports that alg consumed the tokens. A nil alg means the
// node that was parsing.
func Resolved(alg Algorithm) Outcome {
	return Outcome{resolved: alg}
}

// Next returns the delegation target, or nil when resolved.
func (o Outcome) Next() (Algorithm, []string) { return o.next, o.args }

// NodeParser parses the tokens addressed to one node. Base provides
// the default implementation; dispatchers and pipelines override it.
type NodeParser interface {
	ParseNode(args []string) (Outcome, error)
}

// ParseCommandLine walks the command tree from root, parsing args.
// It returns the algorithm that consumed the arguments, ready for
// Run. On error it returns the node that failed, so that the caller
// can print that node's usage. A special action requested anywhere
// below is copied onto every ancestor.
func ParseCommandLine(root Algorithm, args []string) (Algorithm, error) {
	current := root
	var chain []*Base
	for {
		core := current.Core()
		chain = append(chain, core)

		var outcome Outcome
		var err error
		if parser, ok := current.(NodeParser); ok {
			outcome, err = parser.ParseNode(args)
		} else {
			outcome, err = core.ParseNode(args)
		}
		if err != nil {
			return current, err
		}

		if child, rest := outcome.Next(); child != nil {
			current, args = child, rest
			continue
		}

		leaf := outcome.resolved
		if leaf == nil {
			leaf = current
		}
		if special := leaf.Core().special; special != "" {
			for _, ancestor := range chain {
				ancestor.special = special
			}
		}
		return leaf, nil
	}
}

// ParseNode is the default node parser: delegate to a child when b has
// sub-algorithms and the first token is not an option, otherwise parse
// the tokens as b's own arguments.
func (b *Base) ParseNode(args []string) (Outcome, error) {
	if err := b.beginParse(); err != nil {
		return Outcome{}, err
	}

	// "geoalg raster help" is accepted as well as --help.
	if len(args) == 1 && args[0] == "help" {
		b.special = SpecialHelp
		return Resolved(nil), nil
	}

	if b.HasChildren() {
		if len(args) == 0 {
			return Outcome{}, b.Parsef("Missing %s name.", commandWord(b))
		}
		if !strings.HasPrefix(args[0], "-") {
			child, err := b.InstantiateChild(args[0])
			if err != nil {
				return Outcome{}, b.unknownCommand(args[0])
			}
			return Delegate(child, args[1:]), nil
		}
	}

	if err := b.parseArguments(args); err != nil {
		return Outcome{}, err
	}
	return Resolved(nil), nil
}

func (b *Base) unknownCommand(name string) error {
	candidates := b.ChildNames()
	if b.children != nil {
		candidates = append(candidates, b.children.namesAndAliases()...)
	}
	if suggestion := suggestWithin(name, candidates, 2); suggestion != "" {
		return b.Parsef("Unknown command: '%s'. Do you mean '%s'?", name, suggestion)
	}
	return b.Parsef("Unknown command: '%s'", name)
}

// beginParse enforces the once-per-instance rule and surfaces
// declaration errors.
func (b *Base) beginParse() error {
	if b.parsed {
		return b.Parsef("ParseCommandLineArguments() can only be called once per instance.")
	}
	b.parsed = true
	return b.DeclarationError()
}

// ParseArguments parses args as b's own arguments, without child
// delegation, then validates unless a special action was requested.
// Like ParseNode it may be called once per instance.
func (b *Base) ParseArguments(args []string) error {
	if err := b.beginParse(); err != nil {
		return err
	}
	return b.parseArguments(args)
}

// SetSkipValidationInParse defers validation to Run. Pipelines use it
// for steps whose input only exists once the previous step ran.
func (b *Base) SetSkipValidationInParse(skip bool) { b.skipValidation = skip }

func (b *Base) parseArguments(args []string) error {
	pending := newPendingLists()
	rest := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		token := args[i]
		var (
			a        *Arg
			name     string
			value    string
			hasValue bool
		)

		switch {
		case strings.HasPrefix(token, "--"):
			name = token
			if index := strings.IndexByte(token, '='); index >= 0 {
				name = token[:index]
				value = token[index+1:]
				hasValue = true
			}
			a = b.byLong[name[2:]]
			if a == nil {
				if suggestion := Suggest(name[2:], b.longNames()); suggestion != "" {
					return b.Parsef("Option '%s' is unknown. Do you mean '--%s'?", name, suggestion)
				}
				return b.Parsef("Option '%s' is unknown.", name)
			}

		case len(token) >= 2 && token[0] == '-':
			cluster := []rune(token[1:])
			for j, short := range cluster {
				a = b.byShort[short]
				if a == nil {
					message := fmt.Sprintf("Short name option '%c' is unknown.", short)
					if suggestion := Suggest(string(cluster), b.longNames()); suggestion != "" {
						message += fmt.Sprintf(" Do you mean '--%s' (with leading double dash) ?", suggestion)
					}
					return b.Parsef("%s", message)
				}
				if j == len(cluster)-1 {
					break
				}
				if a.typ != TypeBoolean {
					return b.Parsef("Short name option '%c' in '%s' expects a value and must be last.", short, token)
				}
				if err := b.parseValue(a, "-"+string(short), "true", pending); err != nil {
					return err
				}
			}
			name = "-" + string(cluster[len(cluster)-1])

		default:
			rest = append(rest, token)
			continue
		}

		if a.typ == TypeBoolean && !hasValue {
			value, hasValue = "true", true
		}
		if !hasValue {
			if i+1 == len(args) {
				return b.Parsef("Expected value for argument '%s', but ran short of tokens", name)
			}
			i++
			value = args[i]
		}
		if err := b.parseValue(a, name, value, pending); err != nil {
			return err
		}
	}

	if b.special != "" {
		return nil
	}

	if err := b.fillPositionals(rest, pending); err != nil {
		return err
	}

	for _, a := range b.args {
		values, ok := pending.values[a]
		if !ok {
			continue
		}
		if err := a.Set(values); err != nil {
			return b.newError(KindParse, err)
		}
	}

	if b.skipValidation {
		return nil
	}
	return b.validate()
}

type pendingLists struct {
	values map[*Arg][]string
}

func newPendingLists() *pendingLists {
	return &pendingLists{values: map[*Arg][]string{}}
}

// parseValue assigns one textual occurrence to a. Scalars are set
// immediately; list values accumulate until every token is consumed.
func (b *Base) parseValue(a *Arg, name, value string, pending *pendingLists) error {
	if a.explicit && !a.typ.IsList() && !a.repeatedArgAllowed {
		return b.Parsef("Argument '%s' has already been specified.", name)
	}
	if a.typ.IsList() {
		if _, seen := pending.values[a]; seen && !a.repeatedArgAllowed {
			return b.Parsef("Argument '%s' has already been specified.", name)
		}
	}

	switch a.typ {
	case TypeBoolean:
		switch value {
		case "true":
			return b.setParsed(a, true)
		case "false":
			return b.setParsed(a, false)
		}
		return b.Parsef("Invalid value '%s' for boolean argument '%s'. Should be 'true' or 'false'.", value, name)

	case TypeInteger:
		n, err := parseInt(value)
		if err != nil {
			return b.Parsef("Expected integer value for argument '%s', but got '%s'.", name, value)
		}
		return b.setParsed(a, n)

	case TypeReal:
		f, err := parseReal(value)
		if err != nil {
			return b.Parsef("Expected real value for argument '%s', but got '%s'.", name, value)
		}
		return b.setParsed(a, f)

	case TypeString, TypeDataset:
		return b.setParsed(a, value)
	}

	var tokens []string
	if a.packedValuesAllowed {
		tokens = splitPacked(value)
	} else {
		tokens = []string{value}
	}
	for _, token := range tokens {
		switch a.typ {
		case TypeIntegerList:
			if _, err := parseInt(token); err != nil {
				return b.Parsef("Expected list of integer value for argument '%s', but got '%s'.", name, value)
			}
		case TypeRealList:
			if _, err := parseReal(token); err != nil {
				return b.Parsef("Expected list of real value for argument '%s', but got '%s'.", name, value)
			}
		case TypeStringList:
			if _, err := a.canonicalChoice(token); err != nil {
				return b.newError(KindParse, err)
			}
		}
	}
	pending.values[a] = append(pending.values[a], tokens...)
	return nil
}

func (b *Base) setParsed(a *Arg, v any) error {
	if err := a.Set(v); err != nil {
		return b.newError(KindParse, err)
	}
	return nil
}

// splitPacked splits value on commas outside double quotes and removes
// one level of quoting, so that "a,b" stays a single value.
func splitPacked(value string) []string {
	var (
		tokens  []string
		current strings.Builder
		quoted  bool
	)
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == '\\' && quoted && i+1 < len(value) && (value[i+1] == '"' || value[i+1] == '\\'):
			i++
			current.WriteByte(value[i])
		case c == '"':
			quoted = !quoted
		case c == ',' && !quoted:
			tokens = append(tokens, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	return append(tokens, current.String())
}

// fillPositionals assigns leftover tokens to positional arguments in
// declaration order. Arguments already set by name are skipped.
func (b *Base) fillPositionals(tokens []string, pending *pendingLists) error {
	i, current := 0, 0
	for i < len(tokens) && current < len(b.positionals) {
		for current < len(b.positionals) && b.positionals[current].explicit {
			current++
		}
		if current == len(b.positionals) {
			break
		}
		a := b.positionals[current]

		if varyingCount(a) {
			switch {
			case current == 0:
				countAtEnd := 0
				for _, other := range b.positionals[1:] {
					if other.typ.IsList() {
						if varyingCount(other) {
							return b.Parsef("Ambiguity in definition of positional argument '%s' given it has a varying number of values, but follows argument '%s' which also has a varying number of values", other.name, a.name)
						}
						countAtEnd += other.minCount
					} else {
						if !other.required {
							return b.Parsef("Ambiguity in definition of positional argument '%s', given it is not required but follows argument '%s' which has a varying number of values", other.name, a.name)
						}
						countAtEnd++
					}
				}
				if len(tokens) < countAtEnd {
					return b.Parsef("Not enough positional values.")
				}
				for ; i < len(tokens)-countAtEnd; i++ {
					if err := b.parseValue(a, a.name, tokens[i], pending); err != nil {
						return err
					}
				}
			case current == len(b.positionals)-1:
				for ; i < len(tokens); i++ {
					if err := b.parseValue(a, a.name, tokens[i], pending); err != nil {
						return err
					}
				}
			default:
				return b.Parsef("Ambiguity in definition of positional arguments: arguments with varying number of values must be first or last one.")
			}
		} else {
			need := a.maxCount
			if len(tokens)-i < need {
				return b.Parsef("Not enough positional values.")
			}
			for end := i + need; i < end; i++ {
				if err := b.parseValue(a, a.name, tokens[i], pending); err != nil {
					return err
				}
			}
		}
		current++
	}

	if i < len(tokens) {
		return b.Parsef("Positional values starting at '%s' are not expected.", tokens[i])
	}

	for ; current < len(b.positionals); current++ {
		a := b.positionals[current]
		if a.explicit {
			continue
		}
		if _, ok := pending.values[a]; ok {
			continue
		}
		missing := a.required
		if a.typ.IsList() {
			missing = a.minCount > 0
		}
		if missing {
			return b.Parsef("Positional arguments starting at '%s' have not been specified.", a.metaVar)
		}
	}
	return nil
}
