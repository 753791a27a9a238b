package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colinrozzi/git-chat-assistant/internal/workflow"
)

func TestComposeTemplateOnly(t *testing.T) {
	got := Compose("base instructions", "", nil)
	assert.Equal(t, "base instructions", got)
}

func TestComposeWithDirectory(t *testing.T) {
	got := Compose("base instructions", "/home/user/repo", nil)
	assert.True(t, strings.HasPrefix(got, "base instructions"))
	assert.Contains(t, got, "You are operating in repository at /home/user/repo.")
	assert.Contains(t, got, "---")
}

func TestComposeWithWorkflow(t *testing.T) {
	wf, err := workflow.Parse("commit")
	require.NoError(t, err)

	got := Compose("base instructions", "", wf)
	assert.True(t, strings.HasPrefix(got, "base instructions"))
	assert.Contains(t, got, wf.Instruction)
	assert.NotContains(t, got, wf.Kickoff, "kickoff text is a user turn, not prompt framing")
}

func TestComposeSectionOrder(t *testing.T) {
	wf, err := workflow.Parse("review")
	require.NoError(t, err)

	got := Compose("base instructions", "/repo", wf)

	basePos := strings.Index(got, "base instructions")
	dirPos := strings.Index(got, "You are operating in repository at /repo.")
	wfPos := strings.Index(got, wf.Instruction)

	require.GreaterOrEqual(t, basePos, 0)
	require.Greater(t, dirPos, basePos, "directory section must follow the base template")
	require.Greater(t, wfPos, dirPos, "workflow section must follow the directory section")
}

func TestDefaultTemplateMentionsGit(t *testing.T) {
	assert.Contains(t, DefaultTemplate, "Git assistant")
	assert.Contains(t, DefaultTemplate, "commit messages")
}
