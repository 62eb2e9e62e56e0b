// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/bureau-foundation/geoalg/lib/clock"
	"github.com/bureau-foundation/geoalg/lib/config"
	"github.com/bureau-foundation/geoalg/lib/progress"
)

// Algorithm is one node of the command tree. Concrete algorithms embed
// [Base], which provides Core.
type Algorithm interface {
	Core() *Base
}

// Runner is implemented by algorithms that execute. Algorithms that
// only group children do not implement it.
type Runner interface {
	RunImpl(ctx context.Context, pfn progress.Func) error
}

// Finalizer is implemented by algorithms that own resources beyond
// their dataset arguments, such as the steps of a pipeline.
type Finalizer interface {
	FinalizeImpl() error
}

// Special actions short-circuit execution. They are requested by
// flags and propagate to every ancestor of the algorithm that parsed
// them.
const (
	SpecialHelp      = "help"
	SpecialHelpDoc   = "help-doc"
	SpecialJSONUsage = "json-usage"
	SpecialVersion   = "version"
	SpecialDrivers   = "drivers"
)

// Env is what an algorithm needs from its surroundings. Children
// inherit the environment of the algorithm that instantiates them.
type Env struct {
	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer
	Config *config.Config
	Clock  clock.Clock

	// RenderMarkdown writes --help-doc output. Nil writes the
	// Markdown source unchanged.
	RenderMarkdown func(w io.Writer, markdown string) error

	// RenderJSON writes --json-usage output. Nil writes the document
	// unchanged.
	RenderJSON func(w io.Writer, document []byte) error

	// StreamExecution is set while replaying a deferred-execution
	// descriptor. Writes to files are then refused unless the
	// ALLOW_WRITES_IN_STREAM config option is set.
	StreamExecution bool

	// ReferenceDir, when set, is the directory relative dataset names
	// are resolved against.
	ReferenceDir string
}

// ResolveName joins a relative file name onto ReferenceDir. In-memory
// names, URLs, absolute paths and the streamed output placeholder are
// returned unchanged.
func (e *Env) ResolveName(name string) string {
	if e.ReferenceDir == "" || name == "" || name == StreamedDatasetName ||
		strings.Contains(name, "://") || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(e.ReferenceDir, name)
}

// DefaultEnv returns an environment writing to the process streams
// with default configuration and a discarding logger.
func DefaultEnv() *Env {
	return &Env{
		Logger: slog.New(slog.DiscardHandler),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Config: config.Default(),
		Clock:  clock.Real(),
	}
}

func (e *Env) complete() *Env {
	defaults := DefaultEnv()
	out := *e
	if out.Logger == nil {
		out.Logger = defaults.Logger
	}
	if out.Stdout == nil {
		out.Stdout = defaults.Stdout
	}
	if out.Stderr == nil {
		out.Stderr = defaults.Stderr
	}
	if out.Config == nil {
		out.Config = defaults.Config
	}
	if out.Clock == nil {
		out.Clock = defaults.Clock
	}
	return &out
}

type namedCheck struct {
	name  string
	check func() error
}

// Base carries the identity, arguments and children of an algorithm.
// Construct concrete algorithms by embedding Base and calling Init:
//
//	type Info struct {
//	    algorithm.Base
//	    input *algorithm.Arg
//	}
//
//	func NewInfo() *Info {
//	    a := &Info{}
//	    a.Init("info", "Return information on a dataset.", "/programs/info.html")
//	    a.input = a.AddInputDatasetArg(dataset.Raster, true)
//	    return a
//	}
type Base struct {
	name            string
	description     string
	longDescription string
	helpURL         string
	aliases         []string
	callPath        []string

	args        []*Arg
	byLong      map[string]*Arg
	byShort     map[rune]*Arg
	positionals []*Arg
	children    *Registry
	validators  []namedCheck
	declErrs    []error

	parsed         bool
	skipValidation bool
	validated      bool
	special        string
	streamedOutput bool
	pipelineStep   bool
	outputString   *Arg
	examples       []Example

	env *Env
}

// Core returns b. Embedding Base makes a type satisfy Algorithm.
func (b *Base) Core() *Base { return b }

// Init sets the identity of the algorithm and declares the arguments
// every algorithm understands: help, help-doc, json-usage and config.
// helpURL is either absolute or a path below the documentation base
// URL.
func (b *Base) Init(name, description, helpURL string) {
	b.name = name
	b.description = description
	b.helpURL = helpURL
	b.callPath = []string{name}
	b.byLong = map[string]*Arg{}
	b.byShort = map[rune]*Arg{}

	b.AddSpecialFlag(SpecialHelp, 'h', "Display help message and exit")
	b.AddSpecialFlag(SpecialHelpDoc, 0, "Display help message for use by documentation").SetHidden()
	b.AddSpecialFlag(SpecialJSONUsage, 0, "Display usage as JSON document and exit")
	b.AddArg("config", 0, "Configuration option", TypeStringList).
		SetMetaVar("<KEY>=<VALUE>").
		SetOnlyForCLI().
		SetCategory(CategoryCommon).
		AddValidator("key-value", validateKeyValue).
		AddAction("apply-config", func(a *Arg) {
			for _, kv := range a.Strings() {
				key, value, _ := strings.Cut(kv, "=")
				b.Env().Config.SetOption(key, value)
			}
		})
}

// AddSpecialFlag declares a boolean flag that requests a special
// action named after the flag.
func (b *Base) AddSpecialFlag(name string, shortName rune, description string) *Arg {
	return b.AddArg(name, shortName, description, TypeBoolean).
		SetOnlyForCLI().
		SetCategory(CategoryCommon).
		AddAction("special-action", func(a *Arg) {
			if a.Bool() {
				b.special = name
			}
		})
}

func (b *Base) Name() string                { return b.name }
func (b *Base) Description() string         { return b.description }
func (b *Base) LongDescription() string     { return b.longDescription }
func (b *Base) Aliases() []string           { return b.aliases }
func (b *Base) Args() []*Arg                { return b.args }
func (b *Base) PositionalArgs() []*Arg      { return b.positionals }
func (b *Base) SpecialAction() string       { return b.special }
func (b *Base) SupportsStreamedOutput() bool { return b.streamedOutput }

// CallPath returns the command words from the root to b.
func (b *Base) CallPath() []string { return b.callPath }

// SetCallPath replaces the call path. Used by dispatchers that adopt a
// sibling under their own name.
func (b *Base) SetCallPath(path []string) { b.callPath = path }

func (b *Base) SetLongDescription(text string) { b.longDescription = text }

// SetSupportsStreamedOutput marks the algorithm as eligible for
// deferred-execution descriptors.
func (b *Base) SetSupportsStreamedOutput(supported bool) { b.streamedOutput = supported }

// SetPipelineStepUsage renders usage the way pipeline steps are
// listed: no Common section and a "*" in place of the call path.
func (b *Base) SetPipelineStepUsage(step bool) { b.pipelineStep = step }

// IsPipelineStepUsage reports the setting of SetPipelineStepUsage.
func (b *Base) IsPipelineStepUsage() bool { return b.pipelineStep }

// HelpURL returns the help reference as declared.
func (b *Base) HelpURL() string { return b.helpURL }

// HelpFullURL resolves a relative help reference against the
// configured documentation base URL.
func (b *Base) HelpFullURL() string {
	if strings.HasPrefix(b.helpURL, "/") {
		base := config.DefaultDocURL
		if cfg := b.Env().Config; cfg != nil && cfg.Docs.BaseURL != "" {
			base = cfg.Docs.BaseURL
		}
		return strings.TrimSuffix(base, "/") + b.helpURL
	}
	return b.helpURL
}

// Env returns the environment of the algorithm, filling defaults.
func (b *Base) Env() *Env {
	if b.env == nil {
		b.env = DefaultEnv()
	}
	return b.env
}

// SetEnv replaces the environment. Missing fields take defaults.
func (b *Base) SetEnv(env *Env) {
	if env == nil {
		b.env = nil
		return
	}
	b.env = env.complete()
}

// Logger returns the environment logger annotated with the command.
func (b *Base) Logger() *slog.Logger {
	return b.Env().Logger.With("command", strings.Join(b.callPath, " "))
}

// AddArg declares an argument. A zero shortName declares none.
func (b *Base) AddArg(name string, shortName rune, description string, typ ArgType) *Arg {
	a := newArg(name, shortName, description, typ)
	a.owner = b
	if _, exists := b.byLong[name]; exists {
		b.declarationError("Long name '%s' already declared", name)
	}
	b.byLong[name] = a
	if shortName != 0 {
		if shortName > unicode.MaxASCII || !(unicode.IsLetter(shortName) || unicode.IsDigit(shortName)) {
			b.declarationError("Short name '%c' should be a single letter or digit", shortName)
		}
		if _, exists := b.byShort[shortName]; exists {
			b.declarationError("Short name '%c' already declared", shortName)
		}
		b.byShort[shortName] = a
	}
	b.args = append(b.args, a)
	return a
}

func (b *Base) registerAlias(a *Arg, alias string) {
	if _, exists := b.byLong[alias]; exists {
		b.declarationError("Name '%s' already declared.", alias)
		return
	}
	b.byLong[alias] = a
}

func (b *Base) addPositional(a *Arg) {
	b.positionals = append(b.positionals, a)
	// The previously last positional is now in the middle.
	if n := len(b.positionals); n >= 3 {
		middle := b.positionals[n-2]
		if varyingCount(middle) {
			b.declarationError("Ambiguity in definition of positional arguments: arguments with varying number of values must be first or last one.")
		}
	}
}

func varyingCount(a *Arg) bool {
	return a.typ.IsList() && a.minCount != a.maxCount
}

func (b *Base) declarationError(format string, args ...any) {
	b.declErrs = append(b.declErrs, fmt.Errorf(format, args...))
}

// DeclarationError returns the problems found while declaring
// arguments, joined, or nil.
func (b *Base) DeclarationError() error {
	if len(b.declErrs) == 0 {
		return nil
	}
	return b.newError(KindParse, errors.Join(b.declErrs...))
}

// Arg returns the argument with the given long name or alias, or nil.
func (b *Base) Arg(name string) *Arg {
	return b.byLong[strings.TrimPrefix(name, "--")]
}

// LookupArg is Arg with an error suggesting the closest name.
func (b *Base) LookupArg(name string) (*Arg, error) {
	if a := b.Arg(name); a != nil {
		return a, nil
	}
	if suggestion := Suggest(name, b.longNames()); suggestion != "" {
		return nil, b.Parsef("Argument '%s' is unknown. Do you mean '%s'?", name, suggestion)
	}
	return nil, b.Parsef("Argument '%s' is unknown.", name)
}

func (b *Base) longNames() []string {
	var names []string
	for _, a := range b.args {
		if a.IsHiddenForCLI() {
			continue
		}
		names = append(names, a.name)
		names = append(names, a.aliases...)
	}
	return names
}

// AddValidator registers an algorithm-level check run after every
// argument-level check during validation.
func (b *Base) AddValidator(name string, check func() error) {
	b.validators = append(b.validators, namedCheck{name: name, check: check})
}

// AddChild registers a sub-algorithm factory under name and aliases.
func (b *Base) AddChild(name string, factory func() Algorithm, aliases ...string) {
	if b.children == nil {
		b.children = NewRegistry()
	}
	b.children.Register(name, factory, aliases...)
}

// HasChildren reports whether b has sub-algorithms, locally or in the
// process-wide registry.
func (b *Base) HasChildren() bool {
	return (b.children != nil && len(b.children.Names()) > 0) || len(globalChildren(b.callPath)) > 0
}

// ChildNames returns the names of the sub-algorithms.
func (b *Base) ChildNames() []string {
	var names []string
	if b.children != nil {
		names = append(names, b.children.Names()...)
	}
	for _, name := range globalChildren(b.callPath) {
		if b.children == nil || !b.children.Has(name) {
			names = append(names, name)
		}
	}
	return names
}

// InstantiateChild creates the sub-algorithm named name (or one of its
// aliases). The child inherits b's environment and extends its call
// path.
func (b *Base) InstantiateChild(name string) (Algorithm, error) {
	var child Algorithm
	if b.children != nil {
		child = b.children.instantiate(name)
	}
	if child == nil {
		child = instantiateGlobal(append(append([]string(nil), b.callPath...), name))
	}
	if child == nil {
		var candidates []string
		if b.children != nil {
			candidates = append(candidates, b.children.namesAndAliases()...)
		}
		candidates = append(candidates, globalChildren(b.callPath)...)
		if suggestion := suggestWithin(name, candidates, 2); suggestion != "" {
			return nil, b.Parsef("Algorithm '%s' is unknown. Do you mean '%s'?", name, suggestion)
		}
		return nil, b.Parsef("Algorithm '%s' is unknown.", name)
	}
	core := child.Core()
	core.callPath = append(append([]string(nil), b.callPath...), core.name)
	if core.env == nil {
		core.env = b.env
	}
	return child, nil
}

// setOutputStringArg records the argument that receives textual
// output.
func (b *Base) setOutputStringArg(a *Arg) { b.outputString = a }

// OutputString returns the value of the output-string argument, if
// declared.
func (b *Base) OutputString() string {
	if b.outputString == nil {
		return ""
	}
	return b.outputString.String()
}

// Run executes alg. A pending special action (help, help-doc,
// json-usage) is served instead; version and drivers are left to the
// caller. Arguments are validated first unless parsing already did.
// When the output names a deferred-execution descriptor, the
// descriptor is written instead of running.
// Cancellation by pfn or ctx yields a KindCancelled error.
func Run(ctx context.Context, alg Algorithm, pfn progress.Func) error {
	b := alg.Core()
	env := b.Env()

	switch b.special {
	case "":
	case SpecialHelp:
		_, err := io.WriteString(env.Stdout, Usage(alg, false))
		return err
	case SpecialHelpDoc:
		markdown := UsageMarkdown(alg)
		if env.RenderMarkdown != nil {
			return env.RenderMarkdown(env.Stdout, markdown)
		}
		_, err := io.WriteString(env.Stdout, markdown)
		return err
	case SpecialJSONUsage:
		document, err := UsageJSON(alg)
		if err != nil {
			return err
		}
		if env.RenderJSON != nil {
			return env.RenderJSON(env.Stdout, document)
		}
		_, err = env.Stdout.Write(document)
		return err
	default:
		return nil
	}

	if !b.validated {
		if err := Validate(alg); err != nil {
			return err
		}
	}

	if source, ok := alg.(DescriptorSource); ok {
		if name, overwrite, ok := source.DescriptorOutput(); ok {
			return writeDescriptor(alg, source, name, overwrite)
		}
	}

	runner, ok := alg.(Runner)
	if !ok {
		if b.HasChildren() {
			return b.Parsef("Missing %s name.", commandWord(b))
		}
		return b.Executionf("algorithm has no run implementation")
	}

	logger := b.Logger()
	start := env.Clock.Now()
	logger.Debug("algorithm starting")

	pfn = progress.Monotonic(progress.WithContext(ctx, pfn))
	err := runner.RunImpl(ctx, pfn)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	elapsed := clock.Since(env.Clock, start)
	if err != nil {
		logger.Debug("algorithm failed", "duration", elapsed, "error", err)
		return b.wrap(KindExecution, err)
	}
	logger.Debug("algorithm finished", "duration", elapsed)
	return nil
}

func commandWord(b *Base) string {
	if len(b.callPath) <= 1 {
		return "command"
	}
	return "subcommand"
}

// Finalize releases every dataset held by alg's arguments and runs its
// FinalizeImpl. All close errors are reported, joined.
func Finalize(alg Algorithm) error {
	b := alg.Core()
	var errs []error
	if finalizer, ok := alg.(Finalizer); ok {
		if err := finalizer.FinalizeImpl(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, a := range b.args {
		switch v := a.value.(type) {
		case *DatasetHandle:
			if err := v.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s: %w", v.Name(), err))
			}
		case []*DatasetHandle:
			for _, h := range v {
				if err := h.Close(); err != nil {
					errs = append(errs, fmt.Errorf("closing %s: %w", h.Name(), err))
				}
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return b.newError(KindExecution, errors.Join(errs...))
}
