package transfer

import "github.com/sidkik/snowxfer/pkg/manifest"

// BigFilePatterns select the media files that are synced individually.
var BigFilePatterns = []string{
	"*.mkv",
	"*xml.gz",
	"*.mp4",
	"*.mov",
	"*.flac",
	"*.dv",
	"*.iso",
	"*.cue",
	"*.wav",
	"*.scc",
	"*.srt",
	"*Images*",
}

// ArchivePatterns extend BigFilePatterns with the spreadsheets that are kept
// in the archive tier.
var ArchivePatterns = append(append([]string(nil), BigFilePatterns...), "*.xlsx")

// EaviePatterns select the edit master and service copy files.
var EaviePatterns = []string{"*_em.*", "*_sc.*"}

// filterArgs returns the filter flags that upload only files matching
// includes.
func filterArgs(includes []string) []string {
	args := []string{"--exclude", "*"}
	for _, pattern := range includes {
		args = append(args, "--include", pattern)
	}
	for _, pattern := range manifest.ExcludePatterns {
		args = append(args, "--exclude", pattern)
	}
	return args
}
