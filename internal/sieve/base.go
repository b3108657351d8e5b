package sieve

import "math"

// BaseList holds the primes up to ⌊√N⌋ in ascending order. It is built once
// per run and shared read-only by every worker.
type BaseList []int

// Limit returns the largest base prime candidate for bound n, i.e. ⌊√n⌋.
func Limit(n int) int {
	if n < 2 {
		return max(n, 0)
	}

	r := int(math.Sqrt(float64(n)))
	// float64 loses precision past 2^52; compare by division so that
	// squaring cannot overflow
	for r > n/r {
		r--
	}
	for r+1 <= n/(r+1) {
		r++
	}

	return r
}

// BasePrimes runs a plain sieve over [0, ⌊√n⌋] and returns the survivors.
func BasePrimes(n int) BaseList {
	limit := Limit(n)
	if limit < 2 {
		return BaseList{}
	}

	primes := make([]bool, limit+1)
	for i := range primes {
		primes[i] = true
	}

	primes[0] = false
	primes[1] = false

	result := make(BaseList, 0, limit/2)
	for i, isPrime := range primes {
		if !isPrime {
			continue
		}
		result = append(result, i)
		for j := i * i; j < len(primes); j += i {
			primes[j] = false
		}
	}

	return result
}
