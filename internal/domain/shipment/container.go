package shipment

import "strings"

// ISO 6346 letter values skip multiples of 11
var containerLetterValues = map[byte]int{
	'A': 10, 'B': 12, 'C': 13, 'D': 14, 'E': 15, 'F': 16, 'G': 17, 'H': 18, 'I': 19,
	'J': 20, 'K': 21, 'L': 23, 'M': 24, 'N': 25, 'O': 26, 'P': 27, 'Q': 28, 'R': 29,
	'S': 30, 'T': 31, 'U': 32, 'V': 34, 'W': 35, 'X': 36, 'Y': 37, 'Z': 38,
}

// IsValidContainerNumber checks an ISO 6346 container number including its check digit
func IsValidContainerNumber(number string) bool {
	number = strings.ToUpper(strings.TrimSpace(number))
	if len(number) != 11 {
		return false
	}
	sum := 0
	weight := 1
	for i := 0; i < 10; i++ {
		ch := number[i]
		var v int
		switch {
		case i < 4:
			val, ok := containerLetterValues[ch]
			if !ok {
				return false
			}
			if i == 3 && ch != 'U' && ch != 'J' && ch != 'Z' {
				return false
			}
			v = val
		default:
			if ch < '0' || ch > '9' {
				return false
			}
			v = int(ch - '0')
		}
		sum += v * weight
		weight *= 2
	}
	check := number[10]
	if check < '0' || check > '9' {
		return false
	}
	return (sum%11)%10 == int(check-'0')
}
