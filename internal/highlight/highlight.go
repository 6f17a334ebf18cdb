// Package highlight renders fenced code blocks with ANSI syntax coloring
// for terminal report output.
package highlight

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

var (
	codeBlockRegex = regexp.MustCompile("(?s)```(\\w*)\\n(.*?)```")
	ansiRegex      = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// Markdown highlights every fenced code block in markdown text, leaving the
// surrounding prose untouched
func Markdown(text string) string {
	return codeBlockRegex.ReplaceAllStringFunc(text, func(match string) string {
		submatch := codeBlockRegex.FindStringSubmatch(match)
		if len(submatch) < 3 {
			return match
		}

		language := submatch[1]
		code := submatch[2]
		if language == "" {
			language = "text"
		}

		return "```" + language + "\n" + Block(code, language) + "```"
	})
}

// Block highlights a single block of code for the given language. On any
// tokenizer or formatter failure the original code is returned unchanged.
func Block(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}

	return strings.TrimSuffix(buf.String(), "\n") + "\n"
}

// StripANSI removes ANSI color codes from text
func StripANSI(text string) string {
	return ansiRegex.ReplaceAllString(text, "")
}
