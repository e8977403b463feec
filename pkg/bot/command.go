package bot

import (
	"fmt"
	"strings"
)

// Command is a parsed chat command.
type Command struct {
	// Name is the lowercase command name without the leading slash.
	Name string

	// Args is the rest of the message, trimmed.
	Args string
}

type commandInfo struct {
	name        string
	description string
}

// commands lists the supported commands in help order.
var commands = []commandInfo{
	{"help", "display this text."},
	{"img", "Fetch an image"},
	{"more", "Fetch more images"},
	{"what", "Look something up"},
	{"health", "Get the bot's health status"},
	{"roll", "Roll for dubs"},
	{"bodegem", "A place that is real and exists"},
}

// ParseCommand parses "/name[@bot] args". Commands addressed to another
// bot and text that is not a command return false.
func ParseCommand(text, botName string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}

	head, args, _ := strings.Cut(text[1:], " ")
	name, mention, addressed := strings.Cut(head, "@")
	if addressed && !strings.EqualFold(mention, botName) {
		return Command{}, false
	}
	if name == "" {
		return Command{}, false
	}

	return Command{
		Name: strings.ToLower(name),
		Args: strings.TrimSpace(args),
	}, true
}

// Known reports whether the command is supported.
func (c Command) Known() bool {
	for _, info := range commands {
		if info.name == c.Name {
			return true
		}
	}
	return false
}

// String returns the command as it would be typed.
func (c Command) String() string {
	if c.Args == "" {
		return "/" + c.Name
	}
	return "/" + c.Name + " " + c.Args
}

// Descriptions returns the help text.
func Descriptions() string {
	var b strings.Builder
	b.WriteString("These commands are supported:\n")
	for _, info := range commands {
		fmt.Fprintf(&b, "/%s - %s\n", info.name, info.description)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
