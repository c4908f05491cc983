package common

import "math"

// Stamp is a completion stamp handed out by the execution layer. Stamps increase monotonically and a
// stamp of 0 means "never submitted".
type Stamp uint64

// InfiniteTimeout requests an unbounded wait when passed as a timeout in microseconds
const InfiniteTimeout uint64 = math.MaxUint64
