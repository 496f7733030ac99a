package ramses

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sacielo/yt"
)

// header holds the metadata parsed from an info_NNNNN.txt file. RAMSES
// writes it as "key = value" lines (Fortran list-style floats), followed
// by the hilbert ordering table, which this frontend does not need.
type header struct {
	NCPU     int
	NDim     int
	LevelMin int
	LevelMax int

	BoxLen float64
	Time   float64
	Aexp   float64
	H0     float64
	OmegaM float64
	OmegaL float64
	OmegaK float64
	OmegaB float64

	// Conversion factors from code units to CGS.
	UnitL float64
	UnitD float64
	UnitT float64

	Ordering string
}

// requiredKeys must all appear in the header, or the file is not a
// RAMSES info file.
var requiredKeys = []string{
	"ncpu", "ndim", "levelmin", "levelmax",
	"boxlen", "time", "unit_l", "unit_d", "unit_t",
}

// parseHeader reads and validates an info file. Any missing required key
// or unparsable value fails the whole load with yt.ErrFormat.
func parseHeader(path string) (*header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening header: %w", err)
	}
	defer f.Close()

	kv := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "DOMAIN") {
			// Start of the domain decomposition table.
			break
		}
		i := strings.Index(line, "=")
		if i < 0 {
			continue
		}
		key := strings.TrimSpace(line[:i])
		val := strings.TrimSpace(line[i+1:])
		if key == "" || val == "" {
			continue
		}
		kv[key] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	for _, key := range requiredKeys {
		if _, ok := kv[key]; !ok {
			return nil, fmt.Errorf("%w: header %s lacks %q", yt.ErrFormat, path, key)
		}
	}

	h := &header{Ordering: kv["ordering type"]}
	ints := map[string]*int{
		"ncpu":     &h.NCPU,
		"ndim":     &h.NDim,
		"levelmin": &h.LevelMin,
		"levelmax": &h.LevelMax,
	}
	for key, dst := range ints {
		n, err := strconv.Atoi(kv[key])
		if err != nil {
			return nil, fmt.Errorf("%w: header %s: bad %s %q", yt.ErrFormat, path, key, kv[key])
		}
		*dst = n
	}
	floats := map[string]*float64{
		"boxlen": &h.BoxLen,
		"time":   &h.Time,
		"unit_l": &h.UnitL,
		"unit_d": &h.UnitD,
		"unit_t": &h.UnitT,
	}
	for key, dst := range floats {
		v, err := strconv.ParseFloat(kv[key], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: header %s: bad %s %q", yt.ErrFormat, path, key, kv[key])
		}
		*dst = v
	}
	// Cosmology block is optional; non-cosmological runs omit or zero it.
	optional := map[string]*float64{
		"aexp":    &h.Aexp,
		"H0":      &h.H0,
		"omega_m": &h.OmegaM,
		"omega_l": &h.OmegaL,
		"omega_k": &h.OmegaK,
		"omega_b": &h.OmegaB,
	}
	for key, dst := range optional {
		if raw, ok := kv[key]; ok {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				*dst = v
			}
		}
	}

	if h.NCPU < 1 || h.NDim < 1 || h.NDim > 3 {
		return nil, fmt.Errorf("%w: header %s: ncpu=%d ndim=%d", yt.ErrFormat, path, h.NCPU, h.NDim)
	}
	if h.BoxLen <= 0 || h.UnitL <= 0 || h.UnitD <= 0 || h.UnitT <= 0 {
		return nil, fmt.Errorf("%w: header %s: non-positive size or unit factor", yt.ErrFormat, path)
	}
	return h, nil
}

// parseParticleHeader reads particle population counts from a
// header_NNNNN.txt file. RAMSES writes one "Total number of ..." label
// per population, with the count on the same line or the next one.
func parseParticleHeader(path string) (total, star, sink, tracer int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("opening particle header: %w", err)
	}
	defer f.Close()

	var pending *int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if pending != nil {
			if n, perr := strconv.ParseInt(strings.Fields(line)[0], 10, 64); perr == nil {
				*pending = n
			}
			pending = nil
			continue
		}
		lower := strings.ToLower(line)
		if !strings.HasPrefix(lower, "total number of") {
			continue
		}
		var dst *int64
		switch {
		case strings.Contains(lower, "star"):
			dst = &star
		case strings.Contains(lower, "sink"):
			dst = &sink
		case strings.Contains(lower, "tracer"):
			dst = &tracer
		case strings.Contains(lower, "dark matter"):
			dst = nil // counted within the total
		default:
			dst = &total
		}
		if dst == nil {
			continue
		}
		fieldsOf := strings.Fields(line)
		last := fieldsOf[len(fieldsOf)-1]
		if n, perr := strconv.ParseInt(last, 10, 64); perr == nil {
			*dst = n
		} else {
			pending = dst
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("reading particle header: %w", err)
	}
	return total, star, sink, tracer, nil
}
