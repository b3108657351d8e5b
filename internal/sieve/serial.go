package sieve

// Sieve is the classic single-array sieve over [0, n]. It is the serial
// reference the segmented variants are checked against.
func Sieve(n int) Bitmap {
	if n < 0 {
		return Bitmap{}
	}

	primes := make(Bitmap, n+1)
	for i := range primes {
		primes[i] = true
	}

	primes[0] = false
	if n >= 1 {
		primes[1] = false
	}

	for p := 2; p*p <= n; p++ {
		if !primes[p] {
			continue
		}
		for m := p * p; m <= n; m += p {
			primes[m] = false
		}
	}

	return primes
}
