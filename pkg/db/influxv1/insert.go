package influxv1

import (
	"strings"
	"unicode"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
)

// Insert is an INSERT statement split into its target and line-protocol payload.
type Insert struct {
	Database        string
	RetentionPolicy string
	Payload         string
}

// ParseInsert accepts
//
//	INSERT INTO "db" <line protocol>
//	INSERT INTO db[.rp] <line protocol>
//	INSERT <line protocol>
//
// and returns the payload exactly as written after the database token.
func ParseInsert(stmt string) (Insert, error) {
	var ins Insert
	s := strings.TrimSpace(stmt)
	if !hasKeyword(s, "INSERT") {
		return ins, db.NewError(db.KindValidation, "statement does not start with INSERT")
	}
	rest := strings.TrimLeftFunc(s[len("INSERT"):], unicode.IsSpace)

	if hasKeyword(rest, "INTO") {
		rest = strings.TrimLeftFunc(rest[len("INTO"):], unicode.IsSpace)
		if rest == "" {
			return ins, db.NewError(db.KindValidation, "missing database after INTO")
		}
		switch q := rest[0]; q {
		case '"', '\'':
			name, n, found := unquoteName(rest, q)
			if !found {
				return ins, db.NewError(db.KindValidation, "unbalanced quote around database name")
			}
			ins.Database = name
			rest = rest[n:]
		default:
			end := strings.IndexFunc(rest, unicode.IsSpace)
			if end < 0 {
				end = len(rest)
			}
			token := rest[:end]
			if strings.ContainsAny(token, `"'`) {
				return ins, db.NewError(db.KindValidation, "unbalanced quote around database name")
			}
			ins.Database, ins.RetentionPolicy, _ = strings.Cut(token, ".")
			rest = rest[end:]
		}
		if ins.Database == "" {
			return ins, db.NewError(db.KindValidation, "Database name cannot be empty")
		}
	}

	ins.Payload = strings.TrimSpace(rest)
	if ins.Payload == "" {
		return ins, db.NewError(db.KindValidation, "INSERT statement has no line protocol payload")
	}
	return ins, nil
}

// unquoteName reads the quoted name at the start of s, honoring backslash
// escapes, and returns it with the number of bytes consumed.
func unquoteName(s string, q byte) (string, int, bool) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s):
			i++
			b.WriteByte(s[i])
		case c == q:
			return b.String(), i + 1, true
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, false
}

// IsInsert reports whether stmt begins with the INSERT keyword, ignoring case
// and leading whitespace.
func IsInsert(stmt string) bool {
	return hasKeyword(strings.TrimLeftFunc(stmt, unicode.IsSpace), "INSERT")
}

func hasKeyword(s, kw string) bool {
	if len(s) < len(kw) || !strings.EqualFold(s[:len(kw)], kw) {
		return false
	}
	return len(s) == len(kw) || unicode.IsSpace(rune(s[len(kw)]))
}
