// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/gdalg"
	"github.com/bureau-foundation/geoalg/lib/progress"
)

// ArgPipeline is the argument holding the pipeline string.
const ArgPipeline = "pipeline"

// Pipeline chains steps separated by "!" (or "|") into one algorithm.
// Step names are resolved in a registry; for a pipeline accepting both
// kinds a name falls back to "<name>-raster" or "<name>-vector"
// depending on what the previous step produces.
type Pipeline struct {
	algorithm.Base

	kinds    dataset.Kind
	registry *algorithm.Registry
	steps    []Step
	result   *algorithm.DatasetHandle
	pipeline *algorithm.Arg
}

// New returns a pipeline over the steps of registry. kinds is Raster,
// Vector or both for the generic pipeline.
func New(name, description, helpURL string, kinds dataset.Kind, registry *algorithm.Registry) *Pipeline {
	p := &Pipeline{
		kinds:    kinds,
		registry: registry,
		result:   algorithm.NewDatasetHandle(""),
	}
	p.Init(name, description, helpURL)
	p.AddProgressArg()
	p.AddArg("quiet", 'q', "Quiet mode", algorithm.TypeBoolean).
		SetOnlyForCLI().
		SetCategory(algorithm.CategoryCommon)
	p.pipeline = p.AddArg(ArgPipeline, 0, "Pipeline string", algorithm.TypeString).
		SetPositional().
		SetMetaVar("PIPELINE")
	p.AddOutputStringArg()
	return p
}

// Steps returns the parsed steps.
func (p *Pipeline) Steps() []Step { return p.steps }

// OutputDataset returns the dataset produced by the last step.
func (p *Pipeline) OutputDataset() *dataset.Dataset { return p.result.Object() }

var pipelineOwnFlags = []string{"--progress", "--quiet", "-q"}

var pipelineSpecialTokens = []string{"help", "-h", "--help", "--help-doc", "--json-usage"}

// ParseNode splits args into steps and parses each one. Pipeline-level
// options (--progress, --quiet, --pipeline, and special flags before
// the first step) are parsed as the pipeline's own arguments. A step
// carrying --help resolves to that step so that its usage is printed.
func (p *Pipeline) ParseNode(args []string) (algorithm.Outcome, error) {
	var own, rest []string
	for i := 0; i < len(args); i++ {
		token := args[i]
		switch {
		case slices.Contains(pipelineOwnFlags, token):
			own = append(own, token)
		case token == "--"+ArgPipeline && i+1 < len(args):
			own = append(own, token, args[i+1])
			i++
		case strings.HasPrefix(token, "--"+ArgPipeline+"="):
			own = append(own, token)
		case len(rest) == 0 && (slices.Contains(pipelineSpecialTokens, token) || strings.HasPrefix(token, "--help-doc=")):
			own = append(own, token)
		case len(rest) == 0 && token == "--config" && i+1 < len(args):
			own = append(own, token, args[i+1])
			i++
		default:
			rest = append(rest, token)
		}
	}
	if len(own) == 1 && own[0] == "help" {
		own[0] = "--help"
	}
	for i, token := range own {
		if strings.HasPrefix(token, "--help-doc=") {
			own[i] = "--help-doc"
		}
	}
	if err := p.ParseArguments(own); err != nil {
		return algorithm.Outcome{}, err
	}
	if p.SpecialAction() != "" {
		return algorithm.Resolved(nil), nil
	}

	if p.pipeline.IsExplicitlySet() && len(rest) == 0 {
		tokens, err := gdalg.Tokenize(p.pipeline.String())
		if err != nil {
			return algorithm.Outcome{}, p.Parsef("%w", err)
		}
		rest = tokens
	} else if len(rest) == 1 && strings.ContainsAny(rest[0], " \t") {
		tokens, err := gdalg.Tokenize(rest[0])
		if err != nil {
			return algorithm.Outcome{}, p.Parsef("%w", err)
		}
		rest = tokens
	}

	if path, trailing, ok := descriptorReference(rest); ok {
		tokens, err := p.loadDescriptor(path, trailing)
		if err != nil {
			return algorithm.Outcome{}, err
		}
		rest = tokens
	}

	help, err := p.buildSteps(rest)
	if err != nil {
		return algorithm.Outcome{}, err
	}
	if help != nil {
		return algorithm.Resolved(help), nil
	}
	return algorithm.Resolved(nil), nil
}

func isSeparator(token string) bool { return token == "!" || token == "|" }

// splitSteps cuts tokens at separators. A leading separator is
// allowed; empty steps are reported by the caller.
func splitSteps(tokens []string) [][]string {
	if len(tokens) > 0 && isSeparator(tokens[0]) {
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return nil
	}
	var (
		groups  [][]string
		current []string
	)
	for _, token := range tokens {
		if isSeparator(token) {
			groups = append(groups, current)
			current = nil
			continue
		}
		current = append(current, token)
	}
	return append(groups, current)
}

// buildSteps instantiates, checks and parses the steps named in
// tokens. When a step requests help it is returned and nothing else is
// kept.
func (p *Pipeline) buildSteps(tokens []string) (Step, error) {
	env := p.Env()
	lastMustBeWrite := !env.StreamExecution
	groups := splitSteps(tokens)
	helpRequested := slices.ContainsFunc(groups, func(group []string) bool {
		return len(group) > 0 && requestsHelp(group[1:])
	})
	if lastMustBeWrite && len(groups) < 2 && !helpRequested {
		return nil, p.Parsef("At least 2 steps must be provided")
	}
	if len(groups) == 0 {
		return nil, p.Parsef("At least one step must be provided in a pipeline.")
	}

	var steps []Step
	abandon := func() {
		for _, step := range steps {
			_ = algorithm.Finalize(step)
		}
	}

	current := p.kinds
	last := len(groups) - 1
	for i, group := range groups {
		if len(group) == 0 || strings.HasPrefix(group[0], "-") {
			abandon()
			return nil, p.Parsef("Step nr %d is missing a step name", i)
		}
		name := group[0]
		step, err := p.resolveStep(name, current)
		if err != nil {
			abandon()
			return nil, err
		}
		// A step asking for help is answered before its place in the
		// pipeline is checked.
		wantsHelp := requestsHelp(group[1:])
		if !wantsHelp {
			if err := p.checkPosition(step, i, last, lastMustBeWrite); err != nil {
				abandon()
				return nil, err
			}
		}
		if i > 0 && !wantsHelp {
			previous := steps[i-1].StepCore()
			if !step.StepCore().InputKinds().Has(current) {
				abandon()
				return nil, p.Validationf("Step '%s' expects a %s input dataset, but previous step '%s' produces a %s dataset.",
					step.Core().Name(), kindPhrase(step.StepCore().InputKinds()), previous.Name(), kindPhrase(current))
			}
		}

		b := step.Core()
		b.SetCallPath(append(append([]string(nil), p.CallPath()...), b.Name()))
		b.SetEnv(env)
		if i > 0 || p.kinds != dataset.Raster|dataset.Vector {
			b.SetSkipValidationInParse(true)
		}
		steps = append(steps, step)
		if err := b.ParseArguments(group[1:]); err != nil {
			abandon()
			return nil, err
		}
		if b.SpecialAction() != "" {
			for _, other := range steps[:len(steps)-1] {
				_ = algorithm.Finalize(other)
			}
			return step, nil
		}

		current = step.StepCore().OutputKind()
		if i == 0 && p.kinds == dataset.Raster|dataset.Vector {
			// The generic pipeline learns the kind from the content.
			if input := step.StepCore().Input(); input != nil && input.Kind() != 0 {
				current = input.Kind()
			}
		}
	}

	var errs []error
	for i, step := range steps {
		if i == 0 && p.kinds == dataset.Raster|dataset.Vector {
			step.StepCore().state = Validated
			continue
		}
		if err := step.StepCore().validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		for _, step := range steps {
			_ = algorithm.Finalize(step)
		}
		return nil, errors.Join(errs...)
	}
	p.steps = steps
	return nil, nil
}

// requestsHelp reports whether a step's arguments ask for its usage.
func requestsHelp(args []string) bool {
	if len(args) == 1 && args[0] == "help" {
		return true
	}
	return slices.ContainsFunc(args, func(arg string) bool {
		return arg == "-h" || arg == "--help" || arg == "--help-doc" || arg == "--json-usage"
	})
}

func kindPhrase(k dataset.Kind) string { return strings.Join(k.Names(), " or ") }

// resolveStep instantiates the step registered as name, or as the
// kind-suffixed variant for one of the kinds in current.
func (p *Pipeline) resolveStep(name string, current dataset.Kind) (Step, error) {
	candidates := []string{name}
	for _, kind := range []dataset.Kind{dataset.Raster, dataset.Vector} {
		if current.Has(kind) {
			candidates = append(candidates, name+"-"+kind.String())
		}
	}
	for _, candidate := range candidates {
		if !p.registry.Has(candidate) {
			continue
		}
		alg, err := p.registry.Instantiate(candidate)
		if err != nil {
			return nil, err
		}
		step, ok := alg.(Step)
		if !ok {
			return nil, p.Parsef("'%s' is not a pipeline step", candidate)
		}
		return step, nil
	}
	if suggestion := algorithm.Suggest(name, p.stepNames(func(Step) bool { return true })); suggestion != "" {
		return nil, p.Parsef("unknown step name: %s. Do you mean '%s'?", name, suggestion)
	}
	return nil, p.Parsef("unknown step name: %s", name)
}

// stepNames returns the distinct step names, without kind suffix, of
// the registered steps accepted by keep.
func (p *Pipeline) stepNames(keep func(Step) bool) []string {
	var names []string
	for _, step := range p.catalog() {
		name := step.Core().Name()
		if keep(step) && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names
}

// catalog instantiates one of every registered step, named by its
// registration.
func (p *Pipeline) catalog() []Step {
	var steps []Step
	for _, name := range p.registry.Names() {
		alg, err := p.registry.Instantiate(name)
		if err != nil {
			continue
		}
		if step, ok := alg.(Step); ok {
			step.Core().SetCallPath([]string{name})
			steps = append(steps, step)
		}
	}
	return steps
}

// quotedChoice renders 'a', 'b' or 'c'.
func quotedChoice(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = "'" + name + "'"
	}
	if len(quoted) <= 1 {
		return strings.Join(quoted, "")
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
}

// checkPosition enforces where each step may appear.
func (p *Pipeline) checkPosition(step Step, index, last int, lastMustBeWrite bool) error {
	s := step.StepCore()
	name := s.Name()
	onlyFirst := s.CanBeFirst() && !s.CanBeMiddle() && !s.CanBeLast()
	switch {
	case index == 0 && !s.CanBeFirst():
		return p.Validationf("First step should be %s", quotedChoice(p.stepNames(func(s Step) bool {
			return s.StepCore().CanBeFirst()
		})))
	case index > 0 && onlyFirst:
		return p.Validationf("Only first step can be '%s'", name)
	case index > 0 && index < last && !s.CanBeMiddle():
		if s.CanBeLast() {
			return p.Validationf("Only last step can be '%s'", name)
		}
		return p.Validationf("'%s' is not allowed as an intermediate step", name)
	case index > 0 && index == last && lastMustBeWrite && !s.CanBeLast():
		return p.Validationf("Last step should be %s", quotedChoice(p.stepNames(func(s Step) bool {
			return s.StepCore().CanBeLast()
		})))
	}
	return nil
}

// checkStreamExecution refuses steps that write files while a
// descriptor is being replayed.
func (p *Pipeline) checkStreamExecution() error {
	env := p.Env()
	if !env.StreamExecution || env.Config.OptionBool(AllowWritesInStream) {
		return nil
	}
	for _, step := range p.steps {
		if _, ok := step.(*WriteStep); ok {
			if isFileWrite(step) {
				return p.Validationf("in streamed execution, --output-format stream should be used")
			}
			continue
		}
		if step.StepCore().WritesFiles() {
			return p.Validationf("Step '%s' not allowed in stream execution, unless the %s configuration option is set.",
				step.Core().Name(), AllowWritesInStream)
		}
	}
	return nil
}

// RunImpl runs the steps. Steps not built by parsing are built from
// the pipeline argument.
func (p *Pipeline) RunImpl(ctx context.Context, pfn progress.Func) error {
	if len(p.steps) == 0 {
		value := p.pipeline.String()
		if value == "" {
			return p.Executionf("'%s' argument not set", ArgPipeline)
		}
		tokens, err := gdalg.Tokenize(value)
		if err != nil {
			return p.Parsef("%w", err)
		}
		if _, err := p.buildSteps(tokens); err != nil {
			return err
		}
	}
	if err := p.checkStreamExecution(); err != nil {
		return err
	}

	result, text, err := run(ctx, p.Logger(), p.steps, pfn)
	if err != nil {
		return err
	}
	if err := p.result.SetObject(result); err != nil {
		return err
	}
	if text != "" {
		output := p.Arg(algorithm.ArgOutputString)
		if err := output.Reset(); err != nil {
			return err
		}
		return output.Set(text)
	}
	return nil
}

// FinalizeImpl finalizes every step and releases the result.
func (p *Pipeline) FinalizeImpl() error {
	var errs []error
	for _, step := range p.steps {
		if err := algorithm.Finalize(step); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.result.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// DescriptorOutput delegates to the final write step.
func (p *Pipeline) DescriptorOutput() (string, bool, bool) {
	if len(p.steps) == 0 {
		return "", false, false
	}
	write, ok := p.steps[len(p.steps)-1].(*WriteStep)
	if !ok {
		return "", false, false
	}
	return write.DescriptorOutput()
}

// DescriptorCommandLine renders every step but the final write.
// Steps that are not natively streaming are replayed in full each
// time the descriptor is opened, which is logged as a warning.
func (p *Pipeline) DescriptorCommandLine() (string, error) {
	var out strings.Builder
	out.WriteString(strings.Join(p.CallPath(), " "))
	for i, step := range p.steps {
		if _, ok := step.(*WriteStep); ok && i == len(p.steps)-1 {
			break
		}
		b := step.Core()
		if !step.StepCore().NativelyStreaming() {
			p.Logger().Warn("step is not natively streaming compatible and may cause significant processing time at opening",
				"step", b.Name())
		}
		tokens, err := algorithm.SerializeArgs(step)
		if err != nil {
			return "", err
		}
		out.WriteString(" ! " + b.Name())
		if len(tokens) > 0 {
			out.WriteString(" " + strings.Join(tokens, " "))
		}
	}
	return out.String(), nil
}

// Usage extends the generated usage with the pipeline syntax and the
// usage of every available step.
func (p *Pipeline) Usage(short bool) string {
	usage := algorithm.UsageWith(p, short, algorithm.UsageOptions{})
	if short {
		return usage
	}
	var out strings.Builder
	out.WriteString(usage)
	firstNames := p.stepNames(func(s Step) bool { return s.StepCore().CanBeFirst() })
	lastNames := p.stepNames(func(s Step) bool { return s.StepCore().CanBeLast() })
	out.WriteString("\n<PIPELINE> is of the form: " + strings.Join(firstNames, "|") +
		" [READ-OPTIONS] ( ! <STEP-NAME> [STEP-OPTIONS] )* ! " + strings.Join(lastNames, "|") + " [WRITE-OPTIONS]\n")
	out.WriteString("\nExample: '" + strings.Join(p.CallPath(), " ") +
		" --progress ! read in.grc ! write out.grc --overwrite'\n")
	out.WriteString("\nPotential steps are:\n")

	steps := p.catalog()
	width := 0
	for _, step := range steps {
		width = max(width, algorithm.OptionColumnWidth(step))
	}
	for _, step := range steps {
		out.WriteString("\n")
		out.WriteString(algorithm.UsageWith(step, false, algorithm.UsageOptions{PipelineStep: true, MaxOptLen: width}))
	}
	return out.String()
}

// ExtendUsageDocument lists the available steps.
func (p *Pipeline) ExtendUsageDocument(doc *algorithm.UsageDocument) {
	for _, step := range p.catalog() {
		doc.PipelineAlgorithms = append(doc.PipelineAlgorithms, algorithm.BuildUsageDocument(step))
	}
}
