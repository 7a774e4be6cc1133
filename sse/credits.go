package sse

import (
	"net/http"
	"strconv"
)

// Credits is the credit-metadata the outer layer attaches to a stream's
// response headers. The core never computes these values (spec §1's
// Non-goals exclude billing); CreditsFunc is a caller-supplied source, and
// a Handler with no CreditsFunc simply omits the headers.
type Credits struct {
	Available      int
	Cost           int
	DailyAllowance int
}

// CreditsFunc supplies the current Credits for a stream, evaluated once per
// connection, right before headers are written.
type CreditsFunc func() Credits

func setCreditHeaders(h http.Header, c Credits) {
	h.Set("X-Credits-Available", strconv.Itoa(c.Available))
	h.Set("X-Credits-Cost", strconv.Itoa(c.Cost))
	h.Set("X-Credits-Daily-Allowance", strconv.Itoa(c.DailyAllowance))
}
