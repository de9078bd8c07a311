package media

import (
	"fmt"
	"strconv"
)

// parseISODuration converts the YouTube contentDetails.duration format (PT1H2M3S, P1DT4M) to seconds.
func parseISODuration(s string) (int, error) {
	if len(s) < 2 || s[0] != 'P' {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	total := 0
	num := ""
	inTime := false
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'T':
			inTime = true
		default:
			if num == "" {
				return 0, fmt.Errorf("invalid duration %q", s)
			}
			n, _ := strconv.Atoi(num)
			num = ""
			switch {
			case r == 'W' && !inTime:
				total += n * 7 * 86400
			case r == 'D' && !inTime:
				total += n * 86400
			case r == 'H' && inTime:
				total += n * 3600
			case r == 'M' && inTime:
				total += n * 60
			case r == 'S' && inTime:
				total += n
			default:
				return 0, fmt.Errorf("invalid duration %q", s)
			}
		}
	}
	if num != "" {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return total, nil
}
