package vm

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/autocorr/sloth/pkg/value"
)

// numericLiteralRE anchors the full symbol: optional sign, then a decimal,
// hex (0x), octal (0o), or binary (0b) integer, or a float with an optional
// fractional part and/or exponent. Mirrors spec.md section 4.2 and the
// original Python implementation's use of tokenize.Number.
var numericLiteralRE = regexp.MustCompile(
	`^[-+]?(0[xX][0-9a-fA-F]+|0[oO][0-7]+|0[bB][01]+|(\d+\.\d*|\.\d+|\d+)([eE][-+]?\d+)?)$`,
)

// IsNumericLiteral reports whether s matches the numeric literal grammar.
func IsNumericLiteral(s string) bool {
	return s != "" && numericLiteralRE.MatchString(s)
}

// ParseNumericLiteral converts a symbol matching IsNumericLiteral into an
// Integer or Float Value. Callers must check IsNumericLiteral first.
func ParseNumericLiteral(s string) (value.Value, error) {
	neg := false
	body := s
	if strings.HasPrefix(body, "-") {
		neg = true
		body = body[1:]
	} else if strings.HasPrefix(body, "+") {
		body = body[1:]
	}

	lower := strings.ToLower(body)
	switch {
	case strings.HasPrefix(lower, "0x"):
		n, err := strconv.ParseInt(body[2:], 16, 64)
		if err != nil {
			return nil, err
		}
		if neg {
			n = -n
		}
		return value.Integer(n), nil
	case strings.HasPrefix(lower, "0o"):
		n, err := strconv.ParseInt(body[2:], 8, 64)
		if err != nil {
			return nil, err
		}
		if neg {
			n = -n
		}
		return value.Integer(n), nil
	case strings.HasPrefix(lower, "0b"):
		n, err := strconv.ParseInt(body[2:], 2, 64)
		if err != nil {
			return nil, err
		}
		if neg {
			n = -n
		}
		return value.Integer(n), nil
	}

	if !strings.ContainsAny(body, ".eE") {
		n, err := strconv.ParseInt(body, 10, 64)
		if err != nil {
			return nil, err
		}
		if neg {
			n = -n
		}
		return value.Integer(n), nil
	}

	f, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return nil, err
	}
	if neg {
		f = -f
	}
	return value.Float(f), nil
}
