package allocation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
)

var tokenRe = regexp.MustCompile(`^#?(\d+)(?:\*(\d+))?$`)

// Token is one comma-separated shorthand entry such as "#12*3".
type Token struct {
	Raw         string
	EquipmentID int64
	Quantity    int
	Err         error
}

// ParseDetails accompanies PARSE_ERROR responses.
type ParseDetails struct {
	Token  string `json:"token"`
	Reason string `json:"reason"`
}

// Tokenize splits input on commas and parses every non-empty entry. Bad entries carry
// a PARSE_ERROR in Err and never affect their siblings.
func Tokenize(input string) []Token {
	parts := strings.Split(input, ",")
	tokens := make([]Token, 0, len(parts))
	for _, part := range parts {
		raw := strings.TrimSpace(part)
		if raw == "" {
			continue
		}
		tokens = append(tokens, parseToken(raw))
	}
	return tokens
}

func parseToken(raw string) Token {
	tok := Token{Raw: raw}
	m := tokenRe.FindStringSubmatch(raw)
	if m == nil {
		tok.Err = parseError(raw, "expected #<id> or #<id>*<quantity>")
		return tok
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id < 1 {
		tok.Err = parseError(raw, "equipment id must be a positive integer")
		return tok
	}
	qty := 1
	if m[2] != "" {
		q, err := strconv.Atoi(m[2])
		if err != nil || q < 1 {
			tok.Err = parseError(raw, "quantity must be a positive integer")
			return tok
		}
		qty = q
	}
	tok.EquipmentID = id
	tok.Quantity = qty
	return tok
}

func parseError(token, reason string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeParse, fmt.Sprintf("cannot parse %q: %s", token, reason)).
		WithDetails(ParseDetails{Token: token, Reason: reason})
}
