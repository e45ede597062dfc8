package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedTemplatesParse(t *testing.T) {
	for _, name := range []string{
		"email_material_digest.html",
		"email_sources_digest.html",
		"email_easy_access.html",
	} {
		tmpl := GetTemplate(name)
		require.NotNil(t, tmpl)
		assert.Equal(t, name, tmpl.Name())
	}
}

func TestUnknownTemplatePanics(t *testing.T) {
	assert.Panics(t, func() {
		GetTemplate("no_such_template.html")
	})
}
