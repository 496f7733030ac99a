package ramses

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Default hydro variable tables, used when the output carries no
// hydro_file_descriptor.txt. The classic table matches plain hydro runs;
// radiative-transfer runs add the infrared pressure and ionization
// abundances.
var (
	classicFieldTable = []string{
		"Density",
		"x-velocity", "y-velocity", "z-velocity",
		"Pressure",
		"Metallicity",
	}
	rtFieldTable = []string{
		"Density",
		"x-velocity", "y-velocity", "z-velocity",
		"Pres_IR",
		"Pressure",
		"Metallicity",
		"HII", "HeII", "HeIII",
	}
)

// parseHydroDescriptor reads the on-disk hydro variable names from a
// hydro_file_descriptor.txt of the form
//
//	nvar        =         10
//	variable #  1 : Density
//	variable #  2 : x-velocity
//	...
//
// Variable order is the storage order in the hydro files.
func parseHydroDescriptor(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening hydro descriptor: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "variable #") {
			continue
		}
		i := strings.Index(line, ":")
		if i < 0 {
			return nil, fmt.Errorf("hydro descriptor %s: malformed line %q", path, line)
		}
		name := strings.TrimSpace(line[i+1:])
		if name == "" {
			return nil, fmt.Errorf("hydro descriptor %s: empty variable name in %q", path, line)
		}
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading hydro descriptor: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("hydro descriptor %s: no variables", path)
	}
	return names, nil
}
