package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadContexts(t *testing.T) {
	path := writeFile(t, "contexts.yaml", `contexts:
  manuals:
    display_name: Product manuals
    collection: manuals_v2
  faq:
    display_name: Support FAQ
  legal: {}
`)

	defs, err := LoadContexts(path)
	require.NoError(t, err)
	require.Len(t, defs, 3)

	assert.Equal(t, ContextDef{ID: "faq", DisplayName: "Support FAQ", Collection: "faq"}, defs[0])
	assert.Equal(t, ContextDef{ID: "legal", DisplayName: "legal", Collection: "legal"}, defs[1])
	assert.Equal(t, ContextDef{ID: "manuals", DisplayName: "Product manuals", Collection: "manuals_v2"}, defs[2])
}

func TestLoadContexts_Errors(t *testing.T) {
	_, err := LoadContexts(writeFile(t, "contexts.yaml", "contexts: [1, 2"))
	assert.Error(t, err)

	_, err = LoadContexts(t.TempDir() + "/none.yaml")
	assert.Error(t, err)
}
