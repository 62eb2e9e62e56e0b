// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package helpdoc

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// DefaultWidth is the wrap width when the terminal size is unknown.
const DefaultWidth = 80

// Theme is the palette used for rendered help.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color
	Heading    lipgloss.Color
	Rule       lipgloss.Color
	Link       lipgloss.Color

	// ChromaStyle names the chroma style used for code.
	ChromaStyle string
}

// DefaultTheme suits dark terminals.
var DefaultTheme = Theme{
	NormalText:  lipgloss.Color("252"),
	FaintText:   lipgloss.Color("245"),
	Heading:     lipgloss.Color("255"),
	Rule:        lipgloss.Color("240"),
	Link:        lipgloss.Color("75"),
	ChromaStyle: "monokai",
}

// Renderer writes help output. Only renderers built by [Detect] or
// [WithProfile] style their output; the zero value writes text
// unchanged.
type Renderer struct {
	Profile termenv.Profile
	Width   int
	Theme   Theme

	color bool
}

// WithProfile returns a renderer styling for profile at the given
// width. The Ascii profile gives a plain renderer.
func WithProfile(profile termenv.Profile, width int) Renderer {
	return Renderer{Profile: profile, Width: width, Theme: DefaultTheme, color: profile != termenv.Ascii}
}

// Detect returns a renderer for f: styled when f is a terminal that
// supports color, plain otherwise. NO_COLOR is honored through
// termenv.
func Detect(f *os.File) Renderer {
	r := Renderer{Profile: termenv.Ascii, Width: DefaultWidth, Theme: DefaultTheme}
	if f == nil || !term.IsTerminal(int(f.Fd())) {
		return r
	}
	width := DefaultWidth
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		width = w
	}
	return WithProfile(termenv.NewOutput(f).EnvColorProfile(), width)
}

func (r Renderer) styled() bool { return r.color && r.Profile != termenv.Ascii }

func (r Renderer) width() int {
	if r.Width <= 0 {
		return DefaultWidth
	}
	return r.Width
}

// Markdown writes markdown to w, rendered for the terminal when the
// renderer is styled.
func (r Renderer) Markdown(w io.Writer, markdown string) error {
	if !r.styled() {
		_, err := io.WriteString(w, markdown)
		return err
	}
	out := renderTerminalMarkdown(markdown, r.theme(), r.width(), r.Profile)
	_, err := io.WriteString(w, out+"\n")
	return err
}

// JSON writes document to w, highlighted when the renderer is styled.
func (r Renderer) JSON(w io.Writer, document []byte) error {
	if !r.styled() {
		_, err := w.Write(document)
		return err
	}
	var buffer strings.Builder
	if err := quick.Highlight(&buffer, string(document), "json", chromaFormatter(r.Profile), r.theme().ChromaStyle); err != nil {
		_, err := w.Write(document)
		return err
	}
	highlighted := buffer.String()
	if bytes.HasSuffix(document, []byte("\n")) && !strings.HasSuffix(highlighted, "\n") {
		highlighted += "\n"
	}
	_, err := io.WriteString(w, highlighted)
	return err
}

func (r Renderer) theme() Theme {
	if r.Theme.ChromaStyle == "" {
		return DefaultTheme
	}
	return r.Theme
}

// chromaFormatter picks the chroma terminal formatter matching the
// color depth of profile.
func chromaFormatter(profile termenv.Profile) string {
	switch profile {
	case termenv.TrueColor:
		return "terminal16m"
	case termenv.ANSI:
		return "terminal16"
	default:
		return "terminal256"
	}
}
