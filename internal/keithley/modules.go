// internal/keithley/modules.go
package keithley

import (
	"strconv"
	"strings"
)

// Switching modules without current inputs.
var nonAmpModules = map[string]bool{
	"7701": true, "7703": true, "7706": true, "7707": true, "7708": true, "7709": true,
}

// AutoCJCModules only support the automatic cold junction for thermocouples.
var AutoCJCModules = []string{"7700", "7706", "7708"}

// IsNonAmpModule reports whether a switching module lacks current inputs.
func IsNonAmpModule(name string) bool { return nonAmpModules[strings.TrimSpace(name)] }

// slotIndex returns the zero-based card position of a MODULE0n key.
func slotIndex(slot string) (int, bool) {
	if len(slot) < len("MODULE0") {
		return 0, false
	}
	n, err := strconv.Atoi(slot[len("MODULE"):])
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

// splitCards splits an *OPT? reply into installed card names.
func splitCards(reply string) []string {
	cards := strings.Split(reply, ",")
	for i := range cards {
		cards[i] = strings.TrimSpace(cards[i])
	}
	return cards
}

// modelFromIdentity extracts the model number from an *IDN? reply such as
// "KEITHLEY INSTRUMENTS INC.,MODEL 2701,1150720,B06".
func modelFromIdentity(idn string) string {
	fields := strings.Split(idn, ",")
	if len(fields) >= 2 {
		f := strings.TrimSpace(fields[1])
		if strings.HasPrefix(strings.ToUpper(f), "MODEL") {
			return strings.TrimSpace(f[len("MODEL"):])
		}
	}
	if len(idn) >= 36 {
		return idn[32:36]
	}
	return ""
}
