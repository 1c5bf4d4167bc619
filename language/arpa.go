package language

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// LoadARPA reads a language model in ARPA format.
// Log probabilities in ARPA files are base-10; they are converted to natural log.
func LoadARPA(r io.Reader) (*NGramModel, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	model := NewNGramModel(1) // grown from the \data\ counts

	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "\\data\\" {
			break
		}
	}

	// ngram counts
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "ngram ") {
			parts := strings.SplitN(line[6:], "=", 2)
			if len(parts) == 2 {
				if order, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
					model.grow(order)
				}
			}
			continue
		}
		break
	}

	for {
		line := strings.TrimSpace(scanner.Text())

		if line == "\\end\\" {
			break
		}

		if strings.HasPrefix(line, "\\") && strings.HasSuffix(line, "-grams:") {
			orderStr := strings.TrimSuffix(strings.TrimPrefix(line, "\\"), "-grams:")
			order, err := strconv.Atoi(orderStr)
			if err != nil || order < 1 {
				return nil, errors.Errorf("bad section header %q", line)
			}

			for scanner.Scan() {
				entry := strings.TrimSpace(scanner.Text())
				if entry == "" {
					continue
				}
				if strings.HasPrefix(entry, "\\") {
					break
				}
				if err := parseNGramLine(model, order, entry); err != nil {
					return nil, errors.Wrapf(err, "parse n-gram line %q", entry)
				}
			}
			continue
		}

		if !scanner.Scan() {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read ARPA")
	}
	if model.Count(1) == 0 {
		return nil, errors.New("ARPA model has no unigrams")
	}

	return model, nil
}

// LoadARPAFile is a convenience wrapper that opens a file path.
func LoadARPAFile(path string) (*NGramModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open language model")
	}
	defer f.Close()
	m, err := LoadARPA(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load language model %s", path)
	}
	return m, nil
}

func parseNGramLine(model *NGramModel, order int, line string) error {
	fields := strings.Fields(line)
	if len(fields) < order+1 {
		return errors.Errorf("too few fields for %d-gram", order)
	}

	logProb, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return errors.Wrap(err, "parse log prob")
	}

	var logBackoff float64
	if len(fields) > order+1 {
		logBackoff, err = strconv.ParseFloat(fields[order+1], 64)
		if err != nil {
			return errors.Wrap(err, "parse backoff")
		}
	}

	model.Set(fields[1:order+1], logProb*math.Ln10, logBackoff*math.Ln10)
	return nil
}

// WriteARPA writes the model in ARPA format (log10 probabilities) to w.
func (m *NGramModel) WriteARPA(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "\\data\\")
	for n := 1; n <= m.Order; n++ {
		fmt.Fprintf(bw, "ngram %d=%d\n", n, m.Count(n))
	}
	fmt.Fprintln(bw)

	for n := 1; n <= m.Order; n++ {
		fmt.Fprintf(bw, "\\%d-grams:\n", n)
		for _, words := range m.ngrams(n) {
			e, _ := m.lookup(words, "")
			lp := e.LogProb / math.Ln10
			if n < m.Order && e.LogBackoff != 0 {
				fmt.Fprintf(bw, "%.6f\t%s\t%.6f\n", lp, strings.Join(words, " "), e.LogBackoff/math.Ln10)
			} else {
				fmt.Fprintf(bw, "%.6f\t%s\n", lp, strings.Join(words, " "))
			}
		}
		fmt.Fprintln(bw)
	}

	fmt.Fprintln(bw, "\\end\\")
	return errors.Wrap(bw.Flush(), "write ARPA")
}
