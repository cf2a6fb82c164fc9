package extract

import "regexp"

// ShowID is an external show or title reference found in NFO text.
type ShowID struct {
	Site string
	ID   string
}

var showIDPatterns = []struct {
	site string
	re   *regexp.Regexp
}{
	{"tvmaze", regexp.MustCompile(`(?i)tvmaze\.com/shows/(\d{1,6})`)},
	{"imdb", regexp.MustCompile(`(?i)imdb\.com/title/(tt\d{1,8})`)},
	{"thetvdb", regexp.MustCompile(`(?i)thetvdb\.com/\?tab=series&id=(\d{1,8})`)},
}

// ParseShowID returns the first reference found, checking tvmaze, imdb and
// thetvdb in that order.
func ParseShowID(text string) (ShowID, bool) {
	for _, p := range showIDPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			return ShowID{Site: p.site, ID: m[1]}, true
		}
	}
	return ShowID{}, false
}
