package manifest

import (
	"errors"
	"testing"

	"github.com/artpar/tfydeploy/internal/core/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect_SingleDocument(t *testing.T) {
	content := `
type: ml-repo
name: snl-ml-repo
storage_integration_fqn: truefoundry:aws:bucket
collaborators:
  - subject: user:someone@example.com
    role_id: mlrepo-admin
`
	res, err := Inspect([]byte(content))
	require.NoError(t, err)
	assert.Equal(t, []plan.Resource{{Type: "ml-repo", Name: "snl-ml-repo"}}, res)
}

func TestInspect_MultiDocument(t *testing.T) {
	content := "type: service\nname: svc-1\n---\n---\n# comment only\n---\ntype: service\nname: svc-2\n"
	res, err := Inspect([]byte(content))
	require.NoError(t, err)
	assert.Equal(t, []plan.Resource{
		{Type: "service", Name: "svc-1"},
		{Type: "service", Name: "svc-2"},
	}, res)
}

func TestInspect_MissingHeaderFields(t *testing.T) {
	res, err := Inspect([]byte("replicas: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, []plan.Resource{{}}, res)
}

func TestInspect_Empty(t *testing.T) {
	_, err := Inspect([]byte("  \n\t"))
	assert.ErrorIs(t, err, ErrEmptyManifest)

	_, err = Inspect([]byte("---\n# nothing\n"))
	assert.ErrorIs(t, err, ErrEmptyManifest)
}

func TestInspect_InvalidYAML(t *testing.T) {
	_, err := Inspect([]byte("type: service\nname: [unclosed\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAML)

	var pErr *ParseError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, 0, pErr.Document)
}

func TestInspect_NotMapping(t *testing.T) {
	_, err := Inspect([]byte("type: service\n---\n- a\n- b\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotMapping)

	var pErr *ParseError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, 1, pErr.Document)
	assert.Contains(t, pErr.Error(), "document 1")
}
