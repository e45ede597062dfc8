package msurl

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/TUD-INF-IAI-MCI/matshare/src/config"
)

func BuildHomepage() string {
	return config.Config.BaseUrl + "/"
}

// BuildCourseUrl addresses a course by its natural key, the same way the
// web frontend routes it.
func BuildCourseUrl(studyCourseSlug, termSlug, courseTypeSlug, courseSlug string) string {
	return config.Config.BaseUrl + "/" + strings.Join([]string{
		url.PathEscape(studyCourseSlug),
		url.PathEscape(termSlug),
		url.PathEscape(courseTypeSlug),
		url.PathEscape(courseSlug),
	}, "/") + "/"
}

func BuildEasyAccessActivation(token string) string {
	return config.Config.BaseUrl + "/easy-access/" + url.PathEscape(token) + "/"
}

func BuildMaterialDownload(courseID int, format string, revision string) string {
	return fmt.Sprintf("%s/material/%d/%s/%s/", config.Config.BaseUrl, courseID, url.PathEscape(format), url.PathEscape(revision))
}
