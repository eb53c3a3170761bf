package scoring

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// ErrMalformedAnswer is returned by ParseAnswers for non-numeric tokens
var ErrMalformedAnswer = errors.New("malformed answer")

// ParseAnswers reads answers separated by whitespace or commas. Lines
// starting with '#' are ignored. The result is not validated.
func ParseAnswers(r io.Reader) ([]int, error) {
	var answers []int
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ';' || unicode.IsSpace(r)
		})
		for _, f := range fields {
			n, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("%w: %q on line %d", ErrMalformedAnswer, f, line)
			}
			answers = append(answers, n)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read answers: %w", err)
	}
	return answers, nil
}
