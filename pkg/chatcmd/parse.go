package chatcmd

import (
	"slices"
	"strings"
)

// Prefix starts every model command.
const Prefix = "/model"

const dryRunFlag = "--dry-run"

var subcommands = []string{
	"current",
	"set",
	"validate",
	"rollback",
	"pin",
	"revert",
	"history",
	"list",
	"help",
}

// Command is a parsed chat command.
type Command struct {
	Name   string
	Args   []string
	DryRun bool
}

// Parse reads a "/model ..." message. ok is false when text is not a model
// command at all. A bare "/model" shows the current model and
// "/model <id>" is shorthand for "/model set <id>".
func Parse(text string) (Command, bool) {
	tokens := tokenize(strings.TrimSpace(text))
	if len(tokens) == 0 || !strings.EqualFold(tokens[0], Prefix) {
		return Command{}, false
	}

	var (
		args   []string
		dryRun bool
	)
	for _, tok := range tokens[1:] {
		if tok == dryRunFlag {
			dryRun = true
			continue
		}
		args = append(args, tok)
	}

	if len(args) == 0 {
		return Command{Name: "current", DryRun: dryRun}, true
	}

	name := strings.ToLower(args[0])
	if !slices.Contains(subcommands, name) {
		return Command{Name: "set", Args: args, DryRun: dryRun}, true
	}
	return Command{Name: name, Args: args[1:], DryRun: dryRun}, true
}

// tokenize splits input on spaces and tabs, honoring single and double quotes.
func tokenize(input string) []string {
	if input == "" {
		return nil
	}

	var tokens []string
	var current strings.Builder
	var quoteChar rune

	for _, r := range input {
		switch {
		case quoteChar == 0 && (r == '"' || r == '\''):
			quoteChar = r
		case r == quoteChar:
			quoteChar = 0
		case (r == ' ' || r == '\t' || r == '\n') && quoteChar == 0:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}
