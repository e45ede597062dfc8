package material

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/TUD-INF-IAI-MCI/matshare/src/config"
	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
	chromahtml "github.com/alecthomas/chroma/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
)

/*
A Builder converts the extracted edit subtree in scratchDir into
distributable material under build.AbsolutePath(). A returned error is a
business failure: it is recorded on the build row as its error message and
the build ends up failed. Builders must not write outside the result
directory.
*/
type Builder func(ctx context.Context, scratchDir string, course *models.Course, build *models.MaterialBuild) error

var builders = map[models.BuildFormat]Builder{
	models.BuildFormatHTML: BuildHTML,
	models.BuildFormatEPUB: BuildEPUB,
}

func BuilderFor(format models.BuildFormat) (Builder, error) {
	builder, ok := builders[format]
	if !ok {
		return nil, oops.New(nil, "no builder registered for format %s", format)
	}
	return builder, nil
}

// Scratch files matuc leaves behind that must never end up in the result
// directory.
var artifactPatterns = []string{
	"gladtex.cache",
	"*.md",
}

func isArtifact(name string) bool {
	for _, pattern := range artifactPatterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

var materialMarkdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Footnote,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
			highlighting.WithFormatOptions(
				chromahtml.WithClasses(true),
			),
		),
	),
)

var htmlPageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{.Language}}">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`))

/*
BuildHTML converts every markdown file in the scratch directory to a
standalone HTML page, preserving the directory layout. Non-markdown files
(images, stylesheets) are copied through unchanged.
*/
func BuildHTML(ctx context.Context, scratchDir string, course *models.Course, build *models.MaterialBuild) error {
	resultDir := build.AbsolutePath()
	err := os.MkdirAll(resultDir, 0o755)
	if err != nil {
		return oops.New(err, "failed to create result directory")
	}

	return filepath.Walk(scratchDir, func(fsPath string, info os.FileInfo, err error) error {
		if err != nil {
			return oops.New(err, "failed to walk scratch directory")
		}
		if info.IsDir() || info.Name() == config.Config.Matuc.ConfigFile {
			return nil
		}

		rel, err := filepath.Rel(scratchDir, fsPath)
		if err != nil {
			return oops.New(err, "failed to relativize %s", fsPath)
		}

		content, err := os.ReadFile(fsPath)
		if err != nil {
			return oops.New(err, "failed to read %s", fsPath)
		}

		destPath := filepath.Join(resultDir, rel)
		if strings.EqualFold(filepath.Ext(fsPath), ".md") {
			destPath = strings.TrimSuffix(destPath, filepath.Ext(destPath)) + ".html"

			var body bytes.Buffer
			err = materialMarkdown.Convert(content, &body)
			if err != nil {
				return oops.New(err, "failed to convert %s", rel)
			}

			var page bytes.Buffer
			err = htmlPageTemplate.Execute(&page, map[string]interface{}{
				"Language": course.Language,
				"Title":    course.Name,
				"Body":     template.HTML(body.String()),
			})
			if err != nil {
				return oops.New(err, "failed to render page for %s", rel)
			}
			content = page.Bytes()
		}

		err = os.MkdirAll(filepath.Dir(destPath), 0o755)
		if err != nil {
			return oops.New(err, "failed to create directory for %s", destPath)
		}
		err = os.WriteFile(destPath, content, 0o644)
		if err != nil {
			return oops.New(err, "failed to write %s", destPath)
		}
		return nil
	})
}

/*
BuildEPUB invokes matuc on the scratch directory and moves its output into
the result directory. matuc's combined output is captured into the error on
failure so it lands in the build row's error message.
*/
func BuildEPUB(ctx context.Context, scratchDir string, course *models.Course, build *models.MaterialBuild) error {
	resultDir := build.AbsolutePath()
	err := os.MkdirAll(resultDir, 0o755)
	if err != nil {
		return oops.New(err, "failed to create result directory")
	}

	outputName := course.DownloadName() + "." + build.Format.Extension()

	cmd := exec.CommandContext(ctx,
		config.Config.Matuc.Path,
		"conv", ".",
		"--format", "epub",
		"--output", outputName,
	)
	cmd.Dir = scratchDir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("matuc failed: %w\n%s", err, string(output))
	}

	producedPath := filepath.Join(scratchDir, outputName)
	err = copyFile(producedPath, filepath.Join(resultDir, outputName))
	if err != nil {
		return oops.New(err, "matuc reported success but produced no output")
	}

	// Copy any auxiliary files matuc generated, minus its scratch leftovers.
	entries, err := os.ReadDir(scratchDir)
	if err != nil {
		return oops.New(err, "failed to list scratch directory")
	}
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == outputName || isArtifact(entry.Name()) || entry.Name() == config.Config.Matuc.ConfigFile {
			continue
		}
		err = copyFile(filepath.Join(scratchDir, entry.Name()), filepath.Join(resultDir, entry.Name()))
		if err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return oops.New(err, "failed to read %s", src)
	}
	err = os.WriteFile(dest, content, 0o644)
	if err != nil {
		return oops.New(err, "failed to write %s", dest)
	}
	return nil
}
