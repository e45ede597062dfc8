package material

import (
	"encoding/xml"

	"github.com/TUD-INF-IAI-MCI/matshare/src/config"
	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
	"github.com/TUD-INF-IAI-MCI/matshare/src/utils"
)

// The Dublin Core metadata document matuc reads its conversion settings
// from. Lives at a fixed path inside the edit subtree of every course
// repository.
type matucMetadata struct {
	XMLName   xml.Name `xml:"metadata"`
	XmlnsDC   string   `xml:"xmlns:dc,attr"`
	XmlnsMAG  string   `xml:"xmlns:MAGSBS,attr"`
	Title     string   `xml:"dc:title"`
	Creator   string   `xml:"dc:creator"`
	Source    string   `xml:"dc:source"`
	Language  string   `xml:"dc:language"`
	Publisher string   `xml:"dc:publisher"`

	GenerateToc      int `xml:"MAGSBS:generateToc"`
	TocDepth         int `xml:"MAGSBS:tocDepth"`
	AppendixPrefix   int `xml:"MAGSBS:appendixPrefix"`
	PageNumberingGap int `xml:"MAGSBS:pageNumberingGap"`
}

/*
GenerateMatucConfig renders the matuc config document for a course. The
output is byte-for-byte deterministic for identical course settings, which
is what makes the content-addressed short-circuit in the config update job
possible.
*/
func GenerateMatucConfig(course *models.Course) ([]byte, error) {
	meta := matucMetadata{
		XmlnsDC:          "http://purl.org/dc/elements/1.1/",
		XmlnsMAG:         "http://elvis.inf.tu-dresden.de",
		Title:            course.Name,
		Creator:          config.Config.Matuc.Contributor,
		Source:           course.MagsbsSourceAuthor,
		Language:         course.Language,
		Publisher:        utils.OrDefault(course.Publisher, config.Config.Matuc.DefaultPublisher),
		GenerateToc:      boolToInt(course.MagsbsGenerateToc),
		TocDepth:         course.MagsbsTocDepth,
		AppendixPrefix:   boolToInt(course.MagsbsAppendixPrefix),
		PageNumberingGap: course.MagsbsPageNumberingGap,
	}

	body, err := xml.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, oops.New(err, "failed to marshal matuc config")
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

// MatucConfigPath is where the config lives inside the repository tree.
func MatucConfigPath() string {
	return config.Config.Git.EditSubdir + "/" + config.Config.Matuc.ConfigFile
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
