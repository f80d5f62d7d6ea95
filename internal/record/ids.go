package record

// IDLess orders ids so that runs of digits compare by value: "J2000" sorts
// before "J10000" and "doc:1:comp:0009" before "doc:1:comp:10000". Other
// characters compare bytewise.
func IDLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			ni, nj := digitRun(a, i), digitRun(b, j)
			ra, rb := trimZeros(a[i:ni]), trimZeros(b[j:nj])
			if len(ra) != len(rb) {
				return len(ra) < len(rb)
			}
			if ra != rb {
				return ra < rb
			}
			// equal value: fewer leading zeros first keeps the order total
			if ni-i != nj-j {
				return ni-i < nj-j
			}
			i, j = ni, nj
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func digitRun(s string, i int) int {
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return i
}

func trimZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}
