package fields

import (
	"strconv"
	"strings"
)

// Wire markers of the sub-form list protocol. Rendered forms depend on the
// exact literals.
const (
	Separator   = "-"
	TagFromDB   = "_MFL_PK"
	TagNew      = "_MFL_NEW"
	TokenDelete = "_MFLTW_DEL"
	TokenAdd    = "_MFLTW_ADD"
)

// Origin tells whether an entry came from the database or was added in the
// browser.
type Origin int

const (
	OriginDatabase Origin = iota + 1
	OriginNew
)

// Tag returns the wire tag of the origin.
func (o Origin) Tag() string {
	switch o {
	case OriginDatabase:
		return TagFromDB
	case OriginNew:
		return TagNew
	}
	return ""
}

func (o Origin) String() string {
	switch o {
	case OriginDatabase:
		return "database"
	case OriginNew:
		return "new"
	}
	return "unknown"
}

// Token is one classified formdata key of a list field.
type Token struct {
	Origin Origin
	ID     int64
	Delete bool
	Add    bool
	// Input is the remainder after the entry identifier, usually a sub-form
	// input name.
	Input string
}

// EntryName builds "<list>-<TAG>-<id>".
func EntryName(list string, origin Origin, id int64) string {
	return strings.Join([]string{list, origin.Tag(), strconv.FormatInt(id, 10)}, Separator)
}

// DeleteName builds the delete action name of an entry.
func DeleteName(entry string) string {
	return entry + Separator + TokenDelete
}

// AddName builds the add action name of a list.
func AddName(list string) string {
	return list + Separator + TokenAdd
}

// ParseToken classifies key against list. ok is false for keys outside the
// list; malformed is true for keys carrying an entry tag without a valid
// integer identifier.
func ParseToken(list, key string) (tok Token, ok bool, malformed bool) {
	prefix := list + Separator
	if !strings.HasPrefix(key, prefix) {
		return Token{}, false, false
	}
	rest := key[len(prefix):]
	if rest == TokenAdd {
		return Token{Add: true}, true, false
	}
	parts := strings.SplitN(rest, Separator, 3)
	var origin Origin
	switch parts[0] {
	case TagFromDB:
		origin = OriginDatabase
	case TagNew:
		origin = OriginNew
	default:
		return Token{}, false, false
	}
	if len(parts) < 2 {
		return Token{}, false, true
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id < 0 {
		return Token{}, false, true
	}
	tok = Token{Origin: origin, ID: id}
	if len(parts) == 3 {
		if parts[2] == TokenDelete {
			tok.Delete = true
		} else {
			tok.Input = parts[2]
		}
	}
	return tok, true, false
}
