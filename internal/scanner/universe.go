package scanner

import (
	"bufio"
	"os"
	"strings"

	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
)

// LoadUniverse reads the screened symbols from path, one per line, and
// appends the inline symbols. Blank lines and # comments are ignored and
// duplicates keep their first position. An empty path reads only inline.
func LoadUniverse(path string, inline []string) ([]string, error) {
	seen := make(map[string]bool)
	symbols := []string{}

	add := func(symbol string) {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" || seen[symbol] {
			return
		}

		seen[symbol] = true
		symbols = append(symbols, symbol)
	}

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to open universe file %s", path)
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := scanner.Text()
			if i := strings.Index(line, "#"); i >= 0 {
				line = line[:i]
			}

			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}

			add(fields[0])
		}

		if err := scanner.Err(); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read universe file %s", path)
		}
	}

	for _, symbol := range inline {
		add(symbol)
	}

	if len(symbols) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "universe is empty")
	}

	return symbols, nil
}
