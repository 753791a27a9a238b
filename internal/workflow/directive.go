// Package workflow defines the automated git workflow directives and the
// state machine that kicks them off after the chat-state child is spawned.
package workflow

import "fmt"

// Tag identifies a predefined automation workflow.
type Tag string

const (
	TagCommit Tag = "commit"
	TagReview Tag = "review"
	TagRebase Tag = "rebase"
)

// AllTags lists every recognized workflow tag.
var AllTags = []Tag{TagCommit, TagReview, TagRebase}

// Directive couples a workflow tag with its prompt instruction text and the
// kickoff message sent as the synthetic first user turn. Instruction and
// Kickoff are intentionally distinct: the instruction frames the system
// prompt, the kickoff starts the conversation.
type Directive struct {
	Tag         Tag
	Instruction string
	Kickoff     string
}

var directives = map[Tag]Directive{
	TagCommit: {
		Tag: TagCommit,
		Instruction: "Automated commit workflow is active. Guide the user through " +
			"committing their work: review the repository status and diffs before " +
			"suggesting anything, propose which files to stage, and write " +
			"descriptive conventional commit messages.",
		Kickoff: "Analyze the current repository status, stage the changes that " +
			"belong together, propose a commit message, and commit once I confirm.",
	},
	TagReview: {
		Tag: TagReview,
		Instruction: "Automated review workflow is active. Examine pending changes " +
			"carefully, point out problems and risky edits, and summarize what the " +
			"changes do before suggesting improvements.",
		Kickoff: "Review the working tree diff and summarize your findings, " +
			"flagging anything that looks incorrect or risky.",
	},
	TagRebase: {
		Tag: TagRebase,
		Instruction: "Automated rebase workflow is active. Help the user rewrite " +
			"history safely: always inspect the branch state first and explain the " +
			"consequences of each step before performing it.",
		Kickoff: "Inspect the current branch state and walk me through a rebase " +
			"plan for cleaning up this branch.",
	},
}

// Parse resolves a workflow tag string to its Directive.
// The empty string means no workflow and yields (nil, nil).
func Parse(s string) (*Directive, error) {
	if s == "" {
		return nil, nil
	}
	d, ok := directives[Tag(s)]
	if !ok {
		return nil, fmt.Errorf("unknown workflow tag %q (valid: %v)", s, AllTags)
	}
	return &d, nil
}

// Lookup returns the Directive for a known tag.
func Lookup(tag Tag) (Directive, bool) {
	d, ok := directives[tag]
	return d, ok
}
