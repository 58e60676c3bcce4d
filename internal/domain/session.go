package domain

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const sessionSuffixLen = 9

// NewSessionID returns a page-load identifier of the form
// sess_<unix-ms>_<9 base36 chars>. It is never persisted.
func NewSessionID(now time.Time, r *rand.Rand) string {
	var b strings.Builder
	for b.Len() < sessionSuffixLen {
		var n uint64
		if r != nil {
			n = r.Uint64()
		} else {
			n = rand.Uint64()
		}
		b.WriteString(strconv.FormatUint(n, 36))
	}
	return fmt.Sprintf("sess_%d_%s", now.UnixMilli(), b.String()[:sessionSuffixLen])
}
