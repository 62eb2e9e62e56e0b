// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package helpdoc renders --help-doc and --json-usage output for
// terminals. Markdown is parsed with goldmark and drawn with lipgloss
// styles, fenced examples and JSON documents are highlighted with
// chroma. When the destination is not a terminal the text is written
// unchanged, so redirected help stays valid Markdown or JSON.
//
//	renderer := helpdoc.Detect(os.Stdout)
//	env.RenderMarkdown = renderer.Markdown
//	env.RenderJSON = renderer.JSON
package helpdoc
