package templates

import (
	"embed"
	"html/template"
	"strings"

	"github.com/Masterminds/sprig"
	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
	"github.com/TUD-INF-IAI-MCI/matshare/src/utils"
)

//go:embed src
var embeddedTemplateFs embed.FS

var embeddedTemplates = func() map[string]*template.Template {
	templates := make(map[string]*template.Template)

	files := utils.Must(embeddedTemplateFs.ReadDir("src"))
	for _, f := range files {
		if !strings.HasSuffix(f.Name(), ".html") {
			continue
		}
		t := template.New(f.Name())
		t = t.Funcs(sprig.FuncMap())
		t = utils.Must(t.ParseFS(embeddedTemplateFs, "src/"+f.Name()))
		templates[f.Name()] = t
	}

	return templates
}()

func GetTemplate(name string) *template.Template {
	t, hasTemplate := embeddedTemplates[name]
	if !hasTemplate {
		panic(oops.New(nil, "template not found: %s", name))
	}
	return t
}
