package bot

import (
	"errors"
	"strconv"
	"strings"
)

var errBasicInfoFormat = errors.New("expected \"idade peso altura\"")

// parseBasicInfo reads "idade peso altura" typed by the user. Separators may
// be spaces, commas or slashes, and unit suffixes such as "kg" or "cm" are ignored.
func parseBasicInfo(text string) (age, weight, height int, err error) {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == ' ' || r == ',' || r == '/' || r == ';' || r == '\t' || r == '\n'
	})

	var values []int
	for _, f := range fields {
		f = strings.TrimRight(f, "abcdefghijklmnopqrstuvwxyz.")
		if f == "" {
			continue
		}
		n, convErr := strconv.Atoi(f)
		if convErr != nil {
			return 0, 0, 0, errBasicInfoFormat
		}
		values = append(values, n)
	}
	if len(values) != 3 {
		return 0, 0, 0, errBasicInfoFormat
	}
	return values[0], values[1], values[2], nil
}
