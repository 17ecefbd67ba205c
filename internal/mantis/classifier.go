package mantis

import (
	"strings"
)

// ClassifierRules holds the extension sets and skip rules driving
// classification. All matching is case-insensitive on the extension and
// exact on names and prefixes.
type ClassifierRules struct {
	PictureExtensions []string
	MovieExtensions   []string
	AudioExtensions   []string

	SkipFiles      []string // exact file names, e.g. ".DS_Store"
	SkipPrefixes   []string // file name prefixes, e.g. "._", "~"
	SkipExtensions []string // extensions, e.g. "zip"
}

// Classifier decides a file's media kind and whether it should be skipped.
// It has no state beyond its rules and performs no I/O.
type Classifier struct {
	pictures map[string]bool
	movies   map[string]bool
	audio    map[string]bool
	rules    ClassifierRules
}

// NewClassifier builds a Classifier from the given rules.
func NewClassifier(rules ClassifierRules) *Classifier {
	return &Classifier{
		pictures: extensionSet(rules.PictureExtensions),
		movies:   extensionSet(rules.MovieExtensions),
		audio:    extensionSet(rules.AudioExtensions),
		rules:    rules,
	}
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	return set
}

// Kind classifies a file name by its extension.
func (c *Classifier) Kind(name string) MediaKind {
	ext := extension(name)
	switch {
	case c.pictures[ext]:
		return KindPicture
	case c.movies[ext]:
		return KindMovie
	case c.audio[ext]:
		return KindAudio
	}
	return KindUnknown
}

// Skip reports whether a file name matches any skip rule. Symbolic links are
// handled by the scanner before classification and never reach this check.
func (c *Classifier) Skip(name string) bool {
	for _, f := range c.rules.SkipFiles {
		if name == f {
			return true
		}
	}
	for _, p := range c.rules.SkipPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	ext := extension(name)
	for _, x := range c.rules.SkipExtensions {
		if ext == strings.ToLower(strings.TrimPrefix(x, ".")) {
			return true
		}
	}
	return false
}

// extension returns the lowercased extension without the leading dot, or ""
// when the name has none.
func extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}
