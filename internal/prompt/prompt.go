// Package prompt assembles the system prompt handed to the chat-state engine.
package prompt

import (
	"fmt"
	"strings"

	"github.com/colinrozzi/git-chat-assistant/internal/workflow"
)

// DefaultTemplate is the built-in git assistant system prompt, used when the
// caller does not supply one.
const DefaultTemplate = `You are a Git assistant with access to git tools. You can help with:

- Reviewing git status and changes
- Creating meaningful commit messages
- Managing branches and repositories
- Analyzing git history and diffs
- Staging and unstaging files
- Handling merge conflicts
- Git workflow best practices

You have access to git tools that allow you to interact with the repository. Always be helpful and provide clear explanations of git operations.

When helping with commits:
- Always review the changes first before suggesting commit messages
- Create descriptive, conventional commit messages
- Suggest appropriate files to stage if not already staged
- Explain the impact of changes when relevant`

// Section delimiter separating the base template from contextual additions.
const sectionDelimiter = "\n\n---\n\n"

// Compose builds the final system prompt. Order is fixed: base template,
// then the repository context section when a directory is set, then the
// workflow instruction when a directive is set. Each addition is delimited
// so the engine can distinguish base instructions from contextual ones.
func Compose(template string, directory string, wf *workflow.Directive) string {
	var b strings.Builder
	b.WriteString(template)

	if directory != "" {
		b.WriteString(sectionDelimiter)
		fmt.Fprintf(&b, "You are operating in repository at %s.", directory)
	}

	if wf != nil {
		b.WriteString(sectionDelimiter)
		b.WriteString(wf.Instruction)
	}

	return b.String()
}
