// Package handle parses and validates player handles of the form
// gameName#tagLine.
package handle

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxGameName = 16
	minTagLine  = 2
	maxTagLine  = 5
)

// tagRegex matches the tag line: 2–5 ASCII letters or digits.
var tagRegex = regexp.MustCompile(`^[A-Za-z0-9]+$`)

var (
	ErrInvalidHandle   = errors.New("handle: invalid player handle")
	ErrInvalidGameName = errors.New("handle: invalid game name")
	ErrInvalidTagLine  = errors.New("handle: invalid tag line")
)

// Handle identifies a player by game name and tag line.
type Handle struct {
	GameName string `json:"game_name"`
	TagLine  string `json:"tag_line"`
}

// String renders the handle as gameName#tagLine.
func (h Handle) String() string {
	return h.GameName + "#" + h.TagLine
}

// Parse parses "gameName#tagLine".
func Parse(s string) (Handle, error) {
	name, tag, ok := strings.Cut(s, "#")
	if !ok {
		return Handle{}, fmt.Errorf("%w: %q (expected gameName#tagLine)", ErrInvalidHandle, s)
	}
	return FromParts(name, tag)
}

// FromParts validates a handle given as separate path segments.
func FromParts(gameName, tagLine string) (Handle, error) {
	gameName = strings.TrimSpace(gameName)
	tagLine = strings.TrimSpace(tagLine)

	n := utf8.RuneCountInString(gameName)
	if n == 0 || n > maxGameName || strings.ContainsAny(gameName, "#/") {
		return Handle{}, fmt.Errorf("%w: %q", ErrInvalidGameName, gameName)
	}
	if len(tagLine) < minTagLine || len(tagLine) > maxTagLine || !tagRegex.MatchString(tagLine) {
		return Handle{}, fmt.Errorf("%w: %q", ErrInvalidTagLine, tagLine)
	}
	return Handle{GameName: gameName, TagLine: tagLine}, nil
}
