package importer

import "strings"

// DetectDelimiter inspects the first line of data. Tab and comma are
// counted; the more frequent wins, and ties go to tab when preferTab is
// set and to comma otherwise. A semicolon wins only when it strictly
// outnumbers both.
func DetectDelimiter(data []byte, preferTab bool) rune {
	line := string(data)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}

	tabs := strings.Count(line, "\t")
	commas := strings.Count(line, ",")
	semis := strings.Count(line, ";")

	if semis > tabs && semis > commas {
		return ';'
	}
	switch {
	case tabs > commas:
		return '\t'
	case commas > tabs:
		return ','
	case preferTab && tabs > 0:
		return '\t'
	default:
		return ','
	}
}
