// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// UsageOptions adjust text usage rendering.
type UsageOptions struct {
	// PipelineStep renders the header as "* <path>" underlined, and
	// omits Common options.
	PipelineStep bool

	// MaxOptLen aligns descriptions on a column shared with other
	// usages. Zero computes it from this algorithm's options.
	MaxOptLen int
}

// UsageProvider is implemented by algorithms that render their own
// text usage, typically by extending UsageWith.
type UsageProvider interface {
	Usage(short bool) string
}

// Example is a documented invocation shown by --help-doc.
type Example struct {
	Title       string
	CommandLine string
}

// AddExample documents an invocation for --help-doc.
func (b *Base) AddExample(title, commandLine string) {
	b.examples = append(b.examples, Example{Title: title, CommandLine: commandLine})
}

// Examples returns the documented invocations.
func (b *Base) Examples() []Example { return b.examples }

// Usage returns the text usage of alg. The short form only lists the
// synopsis and how to get help.
func Usage(alg Algorithm, short bool) string {
	if provider, ok := alg.(UsageProvider); ok {
		return provider.Usage(short)
	}
	return UsageWith(alg, short, UsageOptions{PipelineStep: alg.Core().pipelineStep})
}

type optionLine struct {
	arg  *Arg
	text string
}

// OptionColumnWidth returns the width of the longest option spelling
// of alg, for aligning several usages.
func OptionColumnWidth(alg Algorithm) int {
	_, width := optionLines(alg.Core())
	return width
}

func optionLines(b *Base) ([]optionLine, int) {
	var lines []optionLine
	width := 0
	for _, a := range b.args {
		if a.IsHiddenForCLI() {
			continue
		}
		var names []string
		if a.shortName != 0 {
			names = append(names, "-"+string(a.shortName))
		}
		for _, alias := range a.aliases {
			names = append(names, "--"+alias)
		}
		names = append(names, "--"+a.name)
		text := strings.Join(names, ", ")
		if a.metaVar != "" {
			metaVar := a.metaVar
			if !strings.HasPrefix(metaVar, "<") {
				metaVar = "<" + metaVar
			}
			if !strings.HasSuffix(metaVar, ">") {
				metaVar += ">"
			}
			text += " " + metaVar
		}
		width = max(width, len(text))
		lines = append(lines, optionLine{arg: a, text: text})
	}
	return lines, width
}

// UsageWith renders text usage with explicit options.
func UsageWith(alg Algorithm, short bool, options UsageOptions) string {
	b := alg.Core()
	var out strings.Builder

	path := strings.Join(b.callPath, " ")
	if options.PipelineStep {
		out.WriteString("* ")
	} else {
		out.WriteString("Usage: ")
	}
	out.WriteString(path)

	hasNonPositionals := slices.ContainsFunc(b.args, func(a *Arg) bool {
		return !a.IsHiddenForCLI() && !a.positional
	})

	if b.HasChildren() {
		word := "<COMMAND>"
		if len(b.callPath) > 1 {
			word = "<SUBCOMMAND>"
		}
		out.WriteString(" " + word)
		if hasNonPositionals {
			out.WriteString(" [OPTIONS]")
		}
		fmt.Fprintf(&out, "\nwhere %s is one of:\n", word)

		var children []*Base
		width := 0
		for _, name := range b.ChildNames() {
			child, err := b.InstantiateChild(name)
			if err != nil {
				continue
			}
			children = append(children, child.Core())
			width = max(width, len(child.Core().name))
		}
		for _, child := range children {
			fmt.Fprintf(&out, "  - %s: %s%s", child.name, strings.Repeat(" ", width-len(child.name)), child.description)
			if len(child.aliases) > 0 {
				fmt.Fprintf(&out, " (alias: %s)", strings.Join(child.aliases, ", "))
			}
			out.WriteByte('\n')
		}
		if short && hasNonPositionals {
			fmt.Fprintf(&out, "\nTry '%s --help' for help.\n", path)
		}
	} else {
		if len(b.args) > 0 {
			if hasNonPositionals {
				out.WriteString(" [OPTIONS]")
			}
			for _, a := range b.positionals {
				out.WriteString(" <" + a.metaVar + ">")
			}
		}
		firstLineLength := out.Len()
		out.WriteByte('\n')
		if options.PipelineStep {
			out.WriteString(strings.Repeat("-", firstLineLength))
			out.WriteByte('\n')
		}
		if short {
			fmt.Fprintf(&out, "Try '%s --help' for help.\n", path)
			return out.String()
		}
		out.WriteString("\n" + b.description + "\n")
	}

	if len(b.args) > 0 && !short {
		lines, width := optionLines(b)
		if options.MaxOptLen > 0 {
			width = options.MaxOptLen
		}

		if len(b.positionals) > 0 {
			out.WriteString("\nPositional arguments:\n")
			for _, line := range lines {
				if line.arg.positional {
					writeOptionLine(&out, b, line, width)
				}
			}
		}

		if hasNonPositionals {
			for _, category := range usageCategories(lines, options.PipelineStep) {
				out.WriteByte('\n')
				if category != CategoryBase {
					out.WriteString(category + " ")
				}
				out.WriteString("Options:\n")
				for _, line := range lines {
					if !line.arg.positional && line.arg.category == category {
						writeOptionLine(&out, b, line, width)
					}
				}
			}
		}
	}

	if b.longDescription != "" {
		out.WriteString("\n" + b.longDescription + "\n")
	}
	if b.helpURL != "" {
		out.WriteString("\nFor more details, consult " + b.HelpFullURL() + "\n")
	}
	return out.String()
}

// usageCategories orders categories: Common, Base, Advanced, custom
// categories in order of appearance, Esoteric.
func usageCategories(lines []optionLine, pipelineStep bool) []string {
	var hasCommon, hasBase, hasAdvanced, hasEsoteric bool
	var custom []string
	for _, line := range lines {
		if line.arg.positional {
			continue
		}
		switch category := line.arg.category; category {
		case CategoryCommon:
			hasCommon = true
		case CategoryBase:
			hasBase = true
		case CategoryAdvanced:
			hasAdvanced = true
		case CategoryEsoteric:
			hasEsoteric = true
		default:
			if !slices.Contains(custom, category) {
				custom = append(custom, category)
			}
		}
	}
	var categories []string
	if hasCommon && !pipelineStep {
		categories = append(categories, CategoryCommon)
	}
	if hasBase {
		categories = append(categories, CategoryBase)
	}
	if hasAdvanced {
		categories = append(categories, CategoryAdvanced)
	}
	categories = append(categories, custom...)
	if hasEsoteric {
		categories = append(categories, CategoryEsoteric)
	}
	return categories
}

func writeOptionLine(out *strings.Builder, b *Base, line optionLine, width int) {
	a := line.arg
	out.WriteString("  " + line.text + "  ")
	out.WriteString(strings.Repeat(" ", max(0, width-len(line.text))))
	out.WriteString(a.description)

	if len(a.choices) > 0 {
		out.WriteString(". " + a.metaVar + "=" + strings.Join(a.choices, "|"))
	}
	if a.typ == TypeDataset && a.IsCreatedByAlgorithm() {
		out.WriteString(" (created by algorithm)")
	}
	if a.hasDefault {
		switch v := a.defaultValue.(type) {
		case string:
			out.WriteString(" (default: " + v + ")")
		case bool:
			if v {
				out.WriteString(" (default: true)")
			}
		case int:
			out.WriteString(" (default: " + strconv.Itoa(v) + ")")
		case float64:
			out.WriteString(" (default: " + strconv.FormatFloat(v, 'g', 6, 64) + ")")
		}
	}
	if a.typ.IsList() && a.displayHintAboutRepetition {
		switch {
		case a.minCount > 0 && a.minCount == a.maxCount:
			fmt.Fprintf(out, " [%d values]", a.maxCount)
		case a.minCount > 0 && a.maxCount < Unbounded:
			fmt.Fprintf(out, " [%d..%d values]", a.minCount, a.maxCount)
		case a.minCount > 0:
			fmt.Fprintf(out, " [%d.. values]", a.minCount)
		case a.maxCount > 1:
			out.WriteString(" [may be repeated]")
		}
	}
	if a.required {
		out.WriteString(" [required]")
	}
	out.WriteByte('\n')

	if a.mutualExclusionGroup != "" {
		var others []string
		for _, other := range b.args {
			if other == a || other.IsHiddenForCLI() || other.mutualExclusionGroup != a.mutualExclusionGroup {
				continue
			}
			others = append(others, "--"+other.name)
		}
		if len(others) > 0 {
			out.WriteString("    " + strings.Repeat(" ", width))
			out.WriteString("Mutually exclusive with " + strings.Join(others, ", ") + "\n")
		}
	}
}

// UsageMarkdown renders the usage of alg as a Markdown document for
// --help-doc.
func UsageMarkdown(alg Algorithm) string {
	b := alg.Core()
	var out strings.Builder
	fmt.Fprintf(&out, "# %s\n\n%s\n\n", strings.Join(b.callPath, " "), b.description)
	out.WriteString("## Synopsis\n\n```text\n")
	out.WriteString(Usage(alg, false))
	out.WriteString("```\n")
	if b.longDescription != "" {
		out.WriteString("\n## Description\n\n" + b.longDescription + "\n")
	}
	if len(b.examples) > 0 {
		out.WriteString("\n## Examples\n")
		for _, example := range b.examples {
			fmt.Fprintf(&out, "\n%s\n\n```sh\n%s\n```\n", example.Title, example.CommandLine)
		}
	}
	if b.helpURL != "" {
		fmt.Fprintf(&out, "\nSee <%s>.\n", b.HelpFullURL())
	}
	return out.String()
}
