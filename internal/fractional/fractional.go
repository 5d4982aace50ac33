// Package fractional generates order keys that sort lexicographically
// between two neighbours, so siblings can be reordered without renumbering.
//
// A key is an integer part followed by an optional fraction, both written in
// base 62. The first character of the integer part encodes its length:
// 'a'..'z' for non-negative integers of 2..27 characters, 'Z'..'A' for
// negative ones. The empty string stands for an open bound.
package fractional

import (
	"strings"

	"golang.org/x/xerrors"
)

const digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const zero = '0'

// smallestInteger can never be used as a key: nothing sorts before it.
var smallestInteger = "A" + strings.Repeat(string(zero), 26)

// KeyBetween returns a key k with lower < k < upper. An empty lower means no
// lower bound, an empty upper means no upper bound.
func KeyBetween(lower, upper string) (string, error) {
	if lower != "" {
		if err := Validate(lower); err != nil {
			return "", err
		}
	}
	if upper != "" {
		if err := Validate(upper); err != nil {
			return "", err
		}
	}
	if lower != "" && upper != "" && lower >= upper {
		return "", xerrors.Errorf("fractional: %q >= %q", lower, upper)
	}

	if lower == "" {
		if upper == "" {
			return "a" + string(zero), nil
		}
		ib, err := integerPart(upper)
		if err != nil {
			return "", err
		}
		fb := upper[len(ib):]
		if ib == smallestInteger {
			mid, err := midpoint("", fb)
			if err != nil {
				return "", err
			}
			return ib + mid, nil
		}
		if ib < upper {
			return ib, nil
		}
		res, ok := decrementInteger(ib)
		if !ok {
			return "", xerrors.Errorf("fractional: cannot decrement %q any more", ib)
		}
		return res, nil
	}

	ia, err := integerPart(lower)
	if err != nil {
		return "", err
	}
	fa := lower[len(ia):]

	if upper == "" {
		i, ok := incrementInteger(ia)
		if ok {
			return i, nil
		}
		mid, err := midpoint(fa, "")
		if err != nil {
			return "", err
		}
		return ia + mid, nil
	}

	ib, err := integerPart(upper)
	if err != nil {
		return "", err
	}
	fb := upper[len(ib):]
	if ia == ib {
		mid, err := midpoint(fa, fb)
		if err != nil {
			return "", err
		}
		return ia + mid, nil
	}
	i, ok := incrementInteger(ia)
	if !ok {
		return "", xerrors.Errorf("fractional: cannot increment %q any more", ia)
	}
	if i < upper {
		return i, nil
	}
	mid, err := midpoint(fa, "")
	if err != nil {
		return "", err
	}
	return ia + mid, nil
}

// NKeysBetween returns n ordered keys between lower and upper.
func NKeysBetween(lower, upper string, n int) ([]string, error) {
	switch {
	case n <= 0:
		return nil, nil
	case n == 1:
		k, err := KeyBetween(lower, upper)
		if err != nil {
			return nil, err
		}
		return []string{k}, nil
	}

	if upper == "" {
		keys := make([]string, 0, n)
		c, err := KeyBetween(lower, upper)
		if err != nil {
			return nil, err
		}
		keys = append(keys, c)
		for len(keys) < n {
			if c, err = KeyBetween(c, upper); err != nil {
				return nil, err
			}
			keys = append(keys, c)
		}
		return keys, nil
	}

	if lower == "" {
		keys := make([]string, n)
		c, err := KeyBetween(lower, upper)
		if err != nil {
			return nil, err
		}
		keys[n-1] = c
		for i := n - 2; i >= 0; i-- {
			if c, err = KeyBetween(lower, c); err != nil {
				return nil, err
			}
			keys[i] = c
		}
		return keys, nil
	}

	mid := n / 2
	c, err := KeyBetween(lower, upper)
	if err != nil {
		return nil, err
	}
	left, err := NKeysBetween(lower, c, mid)
	if err != nil {
		return nil, err
	}
	right, err := NKeysBetween(c, upper, n-mid-1)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, n)
	keys = append(keys, left...)
	keys = append(keys, c)
	return append(keys, right...), nil
}

// Validate reports whether key is a well-formed order key.
func Validate(key string) error {
	if key == "" {
		return xerrors.New("fractional: empty key")
	}
	if key == smallestInteger {
		return xerrors.Errorf("fractional: invalid key %q", key)
	}
	for i := 1; i < len(key); i++ {
		if strings.IndexByte(digits, key[i]) < 0 {
			return xerrors.Errorf("fractional: invalid digit %q in %q", key[i], key)
		}
	}
	i, err := integerPart(key)
	if err != nil {
		return err
	}
	if f := key[len(i):]; strings.HasSuffix(f, string(zero)) {
		return xerrors.Errorf("fractional: invalid key %q, trailing zero", key)
	}
	return nil
}

// midpoint returns a fraction strictly between a and b, where b == "" is
// an open upper bound.
func midpoint(a, b string) (string, error) {
	if b != "" && a >= b {
		return "", xerrors.Errorf("fractional: %q >= %q", a, b)
	}
	if strings.HasSuffix(a, string(zero)) || strings.HasSuffix(b, string(zero)) {
		return "", xerrors.New("fractional: trailing zero")
	}

	if b != "" {
		n := 0
		for n < len(b) && digitAt(a, n) == b[n] {
			n++
		}
		if n > 0 {
			rest := ""
			if n < len(a) {
				rest = a[n:]
			}
			mid, err := midpoint(rest, b[n:])
			if err != nil {
				return "", err
			}
			return b[:n] + mid, nil
		}
	}

	digitA := 0
	if a != "" {
		digitA = strings.IndexByte(digits, a[0])
	}
	digitB := len(digits)
	if b != "" {
		digitB = strings.IndexByte(digits, b[0])
	}

	if digitB-digitA > 1 {
		return string(digits[(digitA+digitB+1)/2]), nil
	}
	if len(b) > 1 {
		return b[:1], nil
	}
	rest := ""
	if len(a) > 1 {
		rest = a[1:]
	}
	mid, err := midpoint(rest, "")
	if err != nil {
		return "", err
	}
	return string(digits[digitA]) + mid, nil
}

func digitAt(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return zero
}

func integerLength(head byte) (int, error) {
	switch {
	case head >= 'a' && head <= 'z':
		return int(head-'a') + 2, nil
	case head >= 'A' && head <= 'Z':
		return int('Z'-head) + 2, nil
	}
	return 0, xerrors.Errorf("fractional: invalid order key head %q", head)
}

func integerPart(key string) (string, error) {
	n, err := integerLength(key[0])
	if err != nil {
		return "", err
	}
	if n > len(key) {
		return "", xerrors.Errorf("fractional: invalid order key %q", key)
	}
	return key[:n], nil
}

func incrementInteger(x string) (string, bool) {
	head := x[0]
	digs := []byte(x[1:])
	carry := true
	for i := len(digs) - 1; carry && i >= 0; i-- {
		d := strings.IndexByte(digits, digs[i]) + 1
		if d == len(digits) {
			digs[i] = zero
		} else {
			digs[i] = digits[d]
			carry = false
		}
	}
	if !carry {
		return string(head) + string(digs), true
	}
	if head == 'Z' {
		return "a" + string(zero), true
	}
	if head == 'z' {
		return "", false
	}
	h := head + 1
	if h > 'a' {
		digs = append(digs, zero)
	} else {
		digs = digs[:len(digs)-1]
	}
	return string(h) + string(digs), true
}

func decrementInteger(x string) (string, bool) {
	head := x[0]
	digs := []byte(x[1:])
	borrow := true
	for i := len(digs) - 1; borrow && i >= 0; i-- {
		d := strings.IndexByte(digits, digs[i]) - 1
		if d == -1 {
			digs[i] = digits[len(digits)-1]
		} else {
			digs[i] = digits[d]
			borrow = false
		}
	}
	if !borrow {
		return string(head) + string(digs), true
	}
	if head == 'a' {
		return "Z" + string(digits[len(digits)-1]), true
	}
	if head == 'A' {
		return "", false
	}
	h := head - 1
	if h < 'Z' {
		digs = append(digs, digits[len(digits)-1])
	} else {
		digs = digs[:len(digs)-1]
	}
	return string(h) + string(digs), true
}
